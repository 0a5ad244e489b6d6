// Package declsite resolves the declaration site of a parametrization
// call: which package issued it and whether it was issued directly. The
// template factory uses the answer to register first-time variants for
// external lookup by name.
package declsite

import (
	"runtime"
	"strings"

	"github.com/varigen/varigen/internal/config"
)

// Provider is the pluggable declaration-context capability. Hosts
// without call-stack introspection install Noop, which degrades
// attribution and turns registration into a no-op.
type Provider interface {
	// CallerContext returns the package path of the user code that
	// invoked the engine and whether that call was direct: issued from
	// the goroutine's entry function rather than relayed through
	// intermediate functions. A ("", false, nil) result is the degraded
	// case where the mechanism works but the immediate caller cannot be
	// attributed.
	CallerContext() (module string, direct bool, err error)
}

// FrameIntrospectionError indicates the host runtime provides no
// call-stack introspection mechanism at all.
type FrameIntrospectionError struct{}

func (e *FrameIntrospectionError) Error() string {
	return "call-stack introspection is not available on this host"
}

// UsageError indicates resolution was attempted with no enclosing frame.
type UsageError struct{}

func (e *UsageError) Error() string {
	return "caller context must be resolved from within another function"
}

type runtimeProvider struct{}

// Runtime returns the standard provider backed by runtime.Callers.
func Runtime() Provider { return runtimeProvider{} }

func (runtimeProvider) CallerContext() (string, bool, error) {
	pc := make([]uintptr, 64)
	n := runtime.Callers(2, pc)
	if n == 0 {
		return "", false, &UsageError{}
	}
	frames := runtime.CallersFrames(pc[:n])
	for {
		f, more := frames.Next()
		if f.Function == "" {
			// Mechanism works but the caller cannot be attributed.
			return "", false, nil
		}
		if engineFrame(f.Function) {
			if !more {
				break
			}
			continue
		}
		// First frame outside the engine: the code that textually issued
		// the call. It is direct when its own caller is the goroutine
		// entry (runtime.main, runtime.goexit, testing harness) or when
		// no further frame exists.
		module := packageOf(f.Function)
		direct := true
		if more {
			next, _ := frames.Next()
			if next.Function != "" && !entryFrame(next.Function) {
				direct = false
			}
		}
		return module, direct, nil
	}
	return "", false, &UsageError{}
}

type noopProvider struct{}

// Noop returns the reduced-functionality provider: attribution always
// degrades, so variant registration becomes a no-op instead of an error.
func Noop() Provider { return noopProvider{} }

func (noopProvider) CallerContext() (string, bool, error) {
	return "", false, nil
}

type unavailableProvider struct{}

// Unavailable returns a provider that reports the introspection
// mechanism as missing. Hosts that require attribution install this so
// the failure is explicit rather than silent.
func Unavailable() Provider { return unavailableProvider{} }

func (unavailableProvider) CallerContext() (string, bool, error) {
	return "", false, &FrameIntrospectionError{}
}

func engineFrame(fn string) bool {
	for _, prefix := range config.EngineFramePrefixes {
		if strings.HasPrefix(fn, prefix+".") {
			return true
		}
	}
	return false
}

func entryFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") || strings.HasPrefix(fn, "testing.")
}

// packageOf extracts the package path from a fully qualified function
// name such as "example.com/pkg.Func" or "example.com/pkg.(*T).Method".
func packageOf(fn string) string {
	slash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[slash+1:], ".")
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}

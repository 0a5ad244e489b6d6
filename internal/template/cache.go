package template

import (
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/varigen/varigen/internal/declsite"
	"github.com/varigen/varigen/internal/typeexpr"
)

// Cache memoizes parametrizations: one canonical variant instance per
// (template identity, argument tuple) key, for the lifetime of the
// process. It exclusively owns the canonical instances; the factory
// never hands out a second object for an already-cached key.
//
// A whole GetOrCreate call runs under one cache-wide creation lock, so a
// variant under construction is never observable by other goroutines.
// The lock is reentrant for the owning goroutine: construction recurses
// through the cache for recursive references and base resolution, and
// those inner lookups must see the in-progress shell.
//
// The cache is an injectable service rather than package state so tests
// can swap in isolated instances and assert exact sizes. DefaultCache
// serves templates that were not given one explicitly.
type Cache struct {
	mu    sync.Mutex
	freed *sync.Cond // signaled when the creation lock is released
	owner uint64     // goroutine holding the creation lock, 0 when free
	depth int

	entries map[string]*Template

	// identical is the identity oracle used for the self-application
	// collapse check. The default is reference identity; tests stub it
	// to exercise the redefinition path.
	identical func(a, b typeexpr.Type) bool

	provider declsite.Provider
	registry *Registry
}

// DefaultCache is the process-wide cache instance.
var DefaultCache = NewCache()

func NewCache() *Cache {
	c := &Cache{
		entries:   make(map[string]*Template),
		identical: func(a, b typeexpr.Type) bool { return a == b },
		provider:  declsite.Runtime(),
		registry:  NewRegistry(),
	}
	c.freed = sync.NewCond(&c.mu)
	return c
}

// acquire takes the creation lock, re-entering when the calling
// goroutine already holds it.
func (c *Cache) acquire() {
	me := gid()
	c.mu.Lock()
	for c.owner != 0 && c.owner != me {
		c.freed.Wait()
	}
	c.owner = me
	c.depth++
	c.mu.Unlock()
}

func (c *Cache) release() {
	c.mu.Lock()
	c.depth--
	if c.depth == 0 {
		c.owner = 0
		c.freed.Broadcast()
	}
	c.mu.Unlock()
}

// gid parses the current goroutine's id from the runtime stack header.
// The creation lock must be reentrant and sync.Mutex is not, so
// ownership is tracked by goroutine identity.
func gid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.Fields(string(buf[:n]))
	id, _ := strconv.ParseUint(header[1], 10, 64)
	return id
}

// SetIdentical replaces the identity oracle.
func (c *Cache) SetIdentical(f func(a, b typeexpr.Type) bool) {
	c.acquire()
	defer c.release()
	c.identical = f
}

// SetProvider replaces the declaration-site provider.
func (c *Cache) SetProvider(p declsite.Provider) {
	c.acquire()
	defer c.release()
	c.provider = p
}

// Registry returns the name registry variants are registered into.
func (c *Cache) Registry() *Registry { return c.registry }

// Len returns the number of cache entries. A single creation inserts
// two entries for one-argument tuples (tuple form and scalar form), so
// sizes grow in steps of two for the common case.
func (c *Cache) Len() int {
	c.acquire()
	defer c.release()
	return len(c.entries)
}

// Clear drops every entry. Previously issued variants stay valid;
// re-parametrizing after a clear produces fresh objects.
func (c *Cache) Clear() {
	c.acquire()
	defer c.release()
	c.entries = make(map[string]*Template)
}

// GetOrCreate returns the memoized variant for template t applied to
// args, creating and caching it on first use.
func (c *Cache) GetOrCreate(t *Template, args []typeexpr.Type) (*Template, error) {
	c.acquire()
	defer c.release()
	key := tupleKey(t, args)
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	return c.create(t, args, key)
}

// Cached reports whether a variant for the given application is already
// present, checking both the tuple-form key and, for single arguments,
// the equivalent scalar-form key.
func (c *Cache) Cached(t *Template, args ...typeexpr.Type) (*Template, bool) {
	c.acquire()
	defer c.release()
	if v, ok := c.entries[tupleKey(t, args)]; ok {
		return v, true
	}
	if len(args) == 1 {
		if v, ok := c.entries[scalarKey(t, args[0])]; ok {
			return v, true
		}
	}
	return nil, false
}

// insert stores v under key unless the creating recursion already did,
// in which case the existing entry is returned so identity still holds.
// The caller holds the creation lock.
func (c *Cache) insert(key string, v *Template) *Template {
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = v
	return v
}

// evict removes the entries a failed construction left behind. The
// caller holds the creation lock.
func (c *Cache) evict(t *Template, args []typeexpr.Type, key string, v *Template) {
	if c.entries[key] == v {
		delete(c.entries, key)
	}
	if len(args) == 1 {
		sk := scalarKey(t, args[0])
		if c.entries[sk] == v {
			delete(c.entries, sk)
		}
	}
}

func (c *Cache) allIdentical(params []*typeexpr.TVar, args []typeexpr.Type) bool {
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		if !c.identical(p, args[i]) {
			return false
		}
	}
	return true
}

// tupleKey is the canonical cache key: template identity plus the
// ordered argument surrogates. Argument expressions that have no natural
// hashable form (callable parameter lists) flatten through typeexpr.Key.
func tupleKey(t *Template, args []typeexpr.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = typeexpr.Key(a)
	}
	return t.RefID() + "|(" + strings.Join(parts, ",") + ")"
}

// scalarKey is the unwrapped single-argument form inserted alongside the
// tuple form so both access patterns hit the same entry.
func scalarKey(t *Template, arg typeexpr.Type) string {
	return t.RefID() + "|" + typeexpr.Key(arg)
}

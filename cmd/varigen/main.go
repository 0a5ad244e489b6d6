package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/varigen/varigen/internal/declsite"
	"github.com/varigen/varigen/internal/jsonschema"
	"github.com/varigen/varigen/internal/manifest"
	"github.com/varigen/varigen/internal/template"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> <manifest.yaml>\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  check   load a manifest, build its templates and variants, report them")
	fmt.Fprintln(os.Stderr, "  schema  emit JSON Schema for every concrete variant in the manifest")
	os.Exit(1)
}

// useColor reports whether stderr is a terminal that should receive
// colored diagnostics. Honors the NO_COLOR convention.
func useColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func fail(err error) {
	if useColor() {
		fmt.Fprintf(os.Stderr, "\x1b[31mError:\x1b[0m %s\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

func load(path string) (*manifest.Set, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

func runCheck(path string) {
	set, err := load(path)
	if err != nil {
		fail(err)
	}
	for _, name := range set.Order {
		t := set.Templates[name]
		params := make([]string, len(t.Params()))
		for i, p := range t.Params() {
			params[i] = p.Name
		}
		if len(params) > 0 {
			fmt.Printf("template %s[%s]: %d fields\n", t.Name(), strings.Join(params, ", "), len(t.Fields()))
		} else {
			fmt.Printf("template %s: %d fields\n", t.Name(), len(t.Fields()))
		}
	}
	for _, v := range set.Variants {
		fmt.Printf("variant %s\n", v.Name())
	}
}

func runSchema(path string) {
	set, err := load(path)
	if err != nil {
		fail(err)
	}
	targets := set.Variants
	if len(targets) == 0 {
		// No explicit variants: concrete templates are their own schema
		// targets.
		for _, name := range set.Order {
			if t := set.Templates[name]; t.Concrete() {
				targets = append(targets, t)
			}
		}
	}
	if len(targets) == 0 {
		fail(fmt.Errorf("%s: no concrete templates or variants to render", path))
	}
	out := make(map[string]jsonschema.Schema, len(targets))
	for _, t := range targets {
		s, err := jsonschema.NewGenerator().Generate(t)
		if err != nil {
			fail(err)
		}
		out[t.Name()] = s
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(data))
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	// Manifest-driven declarations have no meaningful caller module, so
	// skip stack attribution entirely.
	template.DefaultCache.SetProvider(declsite.Noop())

	switch os.Args[1] {
	case "check":
		runCheck(os.Args[2])
	case "schema":
		runSchema(os.Args[2])
	default:
		usage()
	}
}

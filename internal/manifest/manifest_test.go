package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/varigen/varigen/internal/declsite"
	"github.com/varigen/varigen/internal/manifest"
	"github.com/varigen/varigen/internal/template"
)

const pairManifest = `
templates:
  - name: Pair
    params: [K, V]
    fields:
      - name: key
        type: {param: K}
        required: true
      - name: value
        type: {param: V}
        required: true

variants:
  - template: Pair
    args:
      - {con: str}
      - {con: int}
`

func newCache() *template.Cache {
	c := template.NewCache()
	c.SetProvider(declsite.Noop())
	return c
}

func TestParseAndBuild(t *testing.T) {
	m, err := manifest.Parse([]byte(pairManifest), "pair.yaml")
	if err != nil {
		t.Fatal(err)
	}
	set, err := m.BuildWith(newCache())
	if err != nil {
		t.Fatal(err)
	}

	pair, ok := set.Templates["Pair"]
	if !ok {
		t.Fatalf("expected the Pair template, have %v", set.Order)
	}
	if got := len(pair.Params()); got != 2 {
		t.Fatalf("expected 2 parameters, got %d", got)
	}
	if len(set.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(set.Variants))
	}
	v := set.Variants[0]
	if v.Name() != "Pair[str, int]" {
		t.Errorf("unexpected variant name %q", v.Name())
	}
	types := make(map[string]string)
	for _, f := range v.Fields() {
		types[f.Name] = f.Type.String()
	}
	want := map[string]string{"key": "str", "value": "int"}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("variant fields mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.yaml")
	if err := os.WriteFile(path, []byte(pairManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Templates) != 1 || m.Templates[0].Name != "Pair" {
		t.Fatalf("unexpected manifest content: %+v", m)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "templates: []", "no templates defined"},
		{
			"missing name",
			"templates:\n  - fields: []",
			"templates[0]: name is required",
		},
		{
			"duplicate name",
			"templates:\n  - name: A\n  - name: A",
			"duplicate template name",
		},
		{
			"field without type",
			"templates:\n  - name: A\n    fields:\n      - name: x",
			"type is required",
		},
		{
			"ambiguous type",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type: {con: int, param: T}",
			"exactly one of",
		},
		{
			"empty type",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type: {}",
			"empty type expression",
		},
		{
			"map arity",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type:\n          map: [{con: str}]",
			"map takes exactly",
		},
		{
			"single-member union",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type:\n          union: [{con: str}]",
			"union needs at least two members",
		},
		{
			"func without return",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type:\n          func:\n            params: [{con: int}]",
			"func requires a return type",
		},
		{
			"variant without args",
			"templates:\n  - name: A\nvariants:\n  - template: A",
			"args is required",
		},
		{
			"not yaml",
			"templates: {",
			"parsing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(tt.doc), "bad.yaml")
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestBuildForwardReference(t *testing.T) {
	doc := `
templates:
  - name: Tree
    params: [T]
    fields:
      - name: value
        type: {param: T}
        required: true
      - name: children
        type:
          list:
            ref: {template: Tree, args: [{param: T}]}

variants:
  - template: Tree
    args: [{con: int}]
`
	m, err := manifest.Parse([]byte(doc), "tree.yaml")
	if err != nil {
		t.Fatal(err)
	}
	set, err := m.BuildWith(newCache())
	if err != nil {
		t.Fatal(err)
	}
	v := set.Variants[0]
	if v.Name() != "Tree[int]" {
		t.Errorf("unexpected variant name %q", v.Name())
	}
	if got := v.Fields()[1].Type.String(); got != "List[Tree[int]]" {
		t.Errorf("the recursive field must close over the variant, got %s", got)
	}
}

func TestBuildInheritance(t *testing.T) {
	doc := `
templates:
  - name: Identified
    params: [I]
    fields:
      - name: id
        type: {param: I}
        required: true
  - name: User
    fields:
      - name: email
        type: {con: str}
        required: true
    bases:
      - template: Identified
        args: [{con: int}]
    frozen: true
`
	m, err := manifest.Parse([]byte(doc), "users.yaml")
	if err != nil {
		t.Fatal(err)
	}
	set, err := m.BuildWith(newCache())
	if err != nil {
		t.Fatal(err)
	}
	user := set.Templates["User"]
	if !user.Concrete() {
		t.Fatalf("User binds every inherited parameter and must be concrete")
	}
	if !user.Config().Frozen {
		t.Errorf("frozen flag must carry through")
	}
	types := make(map[string]string)
	for _, f := range user.Fields() {
		types[f.Name] = f.Type.String()
	}
	want := map[string]string{"email": "str", "id": "int"}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("merged fields mismatch (-want +got):\n%s", diff)
	}
	if !user.IsSubtypeOf(set.Templates["Identified"]) {
		t.Errorf("inheritance must be visible in the subtype relation")
	}
}

func TestBuildUnknownReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"unknown base",
			"templates:\n  - name: A\n    bases:\n      - template: Ghost",
			`unknown base template "Ghost"`,
		},
		{
			"unknown ref",
			"templates:\n  - name: A\n    fields:\n      - name: x\n        type:\n          ref: {template: Ghost}",
			`unknown template reference "Ghost"`,
		},
		{
			"unknown variant target",
			"templates:\n  - name: A\nvariants:\n  - template: Ghost\n    args: [{con: int}]",
			`unknown template "Ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := manifest.Parse([]byte(tt.doc), "bad.yaml")
			if err != nil {
				t.Fatal(err)
			}
			_, err = m.BuildWith(newCache())
			if err == nil {
				t.Fatalf("expected a build error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

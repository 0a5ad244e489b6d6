package config

// Built-in container constructor names
const (
	ListTypeName = "List"
	MapTypeName  = "Map"
	SetTypeName  = "Set"
)

// Built-in leaf type names
const (
	IntTypeName    = "int"
	StringTypeName = "str"
	BoolTypeName   = "bool"
	FloatTypeName  = "float"
	BytesTypeName  = "bytes"
	AnyTypeName    = "any"
	NoneTypeName   = "none"
)

// JSONSchemaTypes maps built-in leaf type names to their JSON Schema
// "type" keyword. Leaves absent from the map have no direct JSON Schema
// rendering.
var JSONSchemaTypes = map[string]string{
	IntTypeName:    "integer",
	StringTypeName: "string",
	BoolTypeName:   "boolean",
	FloatTypeName:  "number",
	BytesTypeName:  "string",
	NoneTypeName:   "null",
}

// EngineFramePrefixes are the function-path prefixes the declaration-site
// resolver treats as engine-internal when walking the call stack.
var EngineFramePrefixes = []string{
	"github.com/varigen/varigen/internal/template",
	"github.com/varigen/varigen/internal/typeexpr",
	"github.com/varigen/varigen/internal/declsite",
}

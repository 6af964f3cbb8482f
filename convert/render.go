package convert

import (
	"reflect"
	"strings"

	"github.com/broady/fluidgen/ir"
)

// ExternalNamespace qualifies allowlisted types in generated code.
const ExternalNamespace = "FluidTypes"

// Renderer turns annotations into TypeScript type expressions.
type Renderer struct {
	// IsProject is the project-membership test. Custom types whose class
	// reference fails it render as any. A nil func accepts every type.
	IsProject func(reflect.Type) bool
}

// Render returns the TypeScript expression for ann. At the top level an
// optional renders as its inner type, since optionality is carried by the
// field's "?" instead.
func (r Renderer) Render(ann ir.FieldAnnotation, topLevel bool) string {
	switch {
	case ann.Container != "":
		return r.container(ann, topLevel)
	case ann.CustomType != "":
		return r.custom(ann)
	case ann.BaseType != "":
		return string(ann.BaseType)
	}
	return "any"
}

func (r Renderer) custom(ann ir.FieldAnnotation) string {
	if ann.External {
		return ExternalNamespace + "." + ann.CustomType
	}
	if ann.ClassRef != nil && r.IsProject != nil && !r.IsProject(ann.ClassRef) {
		return "any"
	}
	return ann.CustomType
}

func (r Renderer) container(ann ir.FieldAnnotation, topLevel bool) string {
	switch ann.Container {
	case ir.ContainerOptional:
		if len(ann.Args) == 0 {
			return "any"
		}
		inner := r.Render(ann.Args[0], false)
		if topLevel {
			return inner
		}
		return inner + " | null"
	case ir.ContainerArray:
		if len(ann.Args) == 0 {
			return "any[]"
		}
		inner := r.Render(ann.Args[0], false)
		if strings.ContainsAny(inner, "|&") {
			return "(" + inner + ")[]"
		}
		return inner + "[]"
	case ir.ContainerObject:
		switch len(ann.Args) {
		case 0:
			return "Record<string, any>"
		case 1:
			return "Record<string, " + r.Render(ann.Args[0], false) + ">"
		}
		return "Record<" + r.Render(ann.Args[0], false) + ", " + r.Render(ann.Args[1], false) + ">"
	case ir.ContainerTuple:
		if len(ann.Args) == 0 {
			return "[any]"
		}
		return "[" + strings.Join(r.renderAll(ann.Args), ", ") + "]"
	case ir.ContainerUnion:
		if len(ann.Args) == 0 {
			return "any"
		}
		return strings.Join(r.renderAll(ann.Args), " | ")
	case ir.ContainerLiteral:
		if len(ann.LiteralValues) == 0 {
			return "any"
		}
		parts := make([]string, len(ann.LiteralValues))
		for i, v := range ann.LiteralValues {
			if v.IsStringLiteral {
				parts[i] = `"` + EscapeString(v.Value) + `"`
			} else {
				parts[i] = v.Value
			}
		}
		return strings.Join(parts, " | ")
	}
	return "any"
}

func (r Renderer) renderAll(args []ir.FieldAnnotation) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Render(a, false)
	}
	return out
}

// EscapeString escapes s for a double-quoted TypeScript string literal.
func EscapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(s)
}

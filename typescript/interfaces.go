package typescript

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/ir"
)

// Declaration renders a model as an interface, or as an enum when the model
// is one.
func (g *Generator) Declaration(m *ir.ModelNode) string {
	if m.IsEnum {
		return g.enum(m)
	}
	return g.iface(m)
}

func (g *Generator) iface(m *ir.ModelNode) string {
	var b CodeBuilder
	if doc := modelHeader(m); doc != "" {
		b.Lines(doc)
	}

	open := "export interface " + m.Name
	if len(m.Inheritance) > 0 {
		open += " extends " + strings.Join(m.Inheritance, ", ")
	}
	b.Block(open+" {", "}", func() {
		for _, f := range m.Fields {
			b.Lines(g.fieldLines(f)...)
		}
	})
	return b.String()
}

// modelHeader is the declaration's JSDoc: the doc comment followed by one
// @property line per described field.
func modelHeader(m *ir.ModelNode) string {
	var parts []string
	if m.Doc != "" {
		parts = append(parts, m.Doc)
	}
	var props []string
	for _, f := range m.Fields {
		if f.Description != "" && !m.IsEnum {
			props = append(props, fmt.Sprintf("@property %s - %s", f.Name, f.Description))
		}
	}
	if len(props) > 0 && len(parts) > 0 {
		parts = append(parts, "")
	}
	parts = append(parts, props...)
	return wrapJSDoc(parts)
}

func (g *Generator) fieldLines(f ir.Field) []string {
	var doc []string
	if f.Description != "" {
		doc = append(doc, f.Description)
	}
	if t := g.externalClass(f.Annotation); t != nil {
		doc = append(doc, "@external "+qualifiedName(t))
	}
	if f.Default != nil {
		doc = append(doc, "@default "+formatDefault(f.Default))
	}
	doc = append(doc, constraintDocs(f.Constraints)...)

	var lines []string
	switch len(doc) {
	case 0:
	case 1:
		if !strings.Contains(doc[0], "\n") {
			lines = append(lines, "/** "+doc[0]+" */")
			break
		}
		fallthrough
	default:
		lines = append(lines, strings.Split(wrapJSDoc(doc), "\n")...)
	}

	name := propertyName(f.Name)
	if f.IsOptional() {
		name += "?"
	}
	lines = append(lines, name+": "+g.Renderer.Render(f.Annotation, true)+";")
	return lines
}

// externalClass returns the Go type behind a field whose class is declared
// outside the project.
func (g *Generator) externalClass(ann ir.FieldAnnotation) reflect.Type {
	if ann.IsOptional() && len(ann.Args) == 1 {
		ann = ann.Args[0]
	}
	if ann.ClassRef == nil || g.Renderer.IsProject == nil {
		return nil
	}
	if g.Renderer.IsProject(ann.ClassRef) {
		return nil
	}
	return ann.ClassRef
}

func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func formatDefault(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func constraintDocs(c ir.FieldConstraints) []string {
	var docs []string
	if c.MinValue != nil {
		tag := "@minimum"
		if c.Custom["min_exclusive"] == true {
			tag = "@exclusiveMinimum"
		}
		docs = append(docs, tag+" "+formatNumber(*c.MinValue))
	}
	if c.MaxValue != nil {
		tag := "@maximum"
		if c.Custom["max_exclusive"] == true {
			tag = "@exclusiveMaximum"
		}
		docs = append(docs, tag+" "+formatNumber(*c.MaxValue))
	}
	if c.MinLength != nil {
		docs = append(docs, fmt.Sprintf("@minLength %d", *c.MinLength))
	}
	if c.MaxLength != nil {
		docs = append(docs, fmt.Sprintf("@maxLength %d", *c.MaxLength))
	}
	if c.Pattern != "" {
		docs = append(docs, "@pattern "+c.Pattern)
	}
	if c.Deprecated {
		docs = append(docs, "@deprecated")
	}
	return docs
}

func (g *Generator) enum(m *ir.ModelNode) string {
	var b CodeBuilder
	if doc := modelHeader(m); doc != "" {
		b.Lines(doc)
	}
	b.Block("export enum "+m.Name+" {", "}", func() {
		for _, f := range m.Fields {
			if f.Description != "" {
				b.Line("/** " + f.Description + " */")
			}
			b.Line(propertyName(f.Name) + " = " + enumValue(f.Default) + ",")
		}
	})
	return b.String()
}

func enumValue(v any) string {
	switch v := v.(type) {
	case string:
		return `"` + convert.EscapeString(v) + `"`
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}

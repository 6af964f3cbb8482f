package introspect

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/ir"
)

// ValidateRule is a single rule of a validate tag.
type ValidateRule struct {
	// Name is the rule name (e.g., "required", "min").
	Name string

	// Param is the value after "=", empty if none.
	Param string
}

// ParseValidateTag parses a validate tag such as "required,min=8" into rules.
// Rules after a "dive" apply to elements and are dropped.
func ParseValidateTag(tag string) []ValidateRule {
	if tag == "" {
		return nil
	}
	parts := strings.Split(tag, ",")
	rules := make([]ValidateRule, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "dive" {
			break
		}
		rule := ValidateRule{}
		if idx := strings.Index(part, "="); idx > 0 {
			rule.Name = part[:idx]
			rule.Param = part[idx+1:]
		} else {
			rule.Name = part
		}
		rules = append(rules, rule)
	}
	return rules
}

// hasLength reports whether min/max rules bound t's length rather than its
// value.
func hasLength(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// Constraints builds the validation and metadata constraints of a struct
// field from its tags.
func Constraints(f reflect.StructField) ir.FieldConstraints {
	var c ir.FieldConstraints
	length := hasLength(f.Type)

	for _, rule := range ParseValidateTag(f.Tag.Get("validate")) {
		num, err := strconv.ParseFloat(rule.Param, 64)
		if err != nil {
			continue
		}
		n := int(num)
		switch rule.Name {
		case "gte":
			c.MinValue = &num
		case "gt":
			c.MinValue = &num
			c.SetCustom("min_exclusive", true)
		case "lte":
			c.MaxValue = &num
		case "lt":
			c.MaxValue = &num
			c.SetCustom("max_exclusive", true)
		case "min":
			if length {
				c.MinLength = &n
			} else {
				c.MinValue = &num
			}
		case "max":
			if length {
				c.MaxLength = &n
			} else {
				c.MaxValue = &num
			}
		case "len":
			if length {
				lo, hi := n, n
				c.MinLength, c.MaxLength = &lo, &hi
			}
		}
	}

	c.Pattern = f.Tag.Get("pattern")
	c.Alias = f.Tag.Get("alias")
	c.MediaType = f.Tag.Get("mediaType")
	if v, ok := f.Tag.Lookup("deprecated"); ok {
		c.Deprecated = v == "" || v == "true"
	}
	return c
}

// enumValues returns the members named by an `enum` tag, or by a validate
// oneof rule when no tag is present.
func enumValues(f reflect.StructField) []string {
	if v, ok := f.Tag.Lookup("enum"); ok {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	for _, rule := range ParseValidateTag(f.Tag.Get("validate")) {
		if rule.Name == "oneof" {
			return strings.Fields(rule.Param)
		}
	}
	return nil
}

// annotate converts a field's type, narrowing it to a literal set when the
// field lists its allowed values.
func annotate(f reflect.StructField, conv *convert.Converter) ir.FieldAnnotation {
	values := enumValues(f)
	if len(values) == 0 {
		return conv.ToIR(f.Type)
	}
	t := f.Type
	optional := false
	for t.Kind() == reflect.Pointer {
		t, optional = t.Elem(), true
	}
	members := make([]any, len(values))
	for i, v := range values {
		members[i] = v
		if t.Kind() != reflect.String {
			if parsed, err := fluidgen.ParseDefault(v, t); err == nil {
				members[i] = parsed
			}
		}
	}
	ann := convert.Literals(members)
	if optional {
		return ir.Optional(ann)
	}
	return ann
}

var bodyTypes = map[fluidgen.ParamSource]ir.ParameterType{
	fluidgen.SourceJSON: ir.ParamBody,
	fluidgen.SourceBody: ir.ParamBody,
	fluidgen.SourceForm: ir.ParamForm,
	fluidgen.SourceFile: ir.ParamFile,
}

var hiddenTypes = map[fluidgen.ParamSource]ir.ParameterType{
	fluidgen.SourceInject:     ir.ParamDependency,
	fluidgen.SourceRequest:    ir.ParamRequest,
	fluidgen.SourceBackground: ir.ParamBackground,
}

// ClassifyParameters converts a resolved request structure into route
// parameters, in the order path, query, header, cookie, body, then the
// security and hidden parameters. Sub-dependencies are flattened first.
func ClassifyParameters(dep *fluidgen.Dependant, conv *convert.Converter) []ir.Field {
	flat := dep.Flat()
	var out []ir.Field
	add := func(params []fluidgen.Param, pt func(fluidgen.Param) ir.ParameterType) {
		for _, p := range params {
			out = append(out, paramField(p, pt(p), conv))
		}
	}
	fixed := func(pt ir.ParameterType) func(fluidgen.Param) ir.ParameterType {
		return func(fluidgen.Param) ir.ParameterType { return pt }
	}

	add(flat.PathParams, fixed(ir.ParamPath))
	add(flat.QueryParams, fixed(ir.ParamQuery))
	add(flat.HeaderParams, fixed(ir.ParamHeader))
	add(flat.CookieParams, fixed(ir.ParamCookie))
	add(flat.BodyParams, func(p fluidgen.Param) ir.ParameterType {
		if pt, ok := bodyTypes[p.Source]; ok {
			return pt
		}
		return ir.ParamBody
	})
	add(flat.SecurityParams, fixed(ir.ParamSecurity))
	add(flat.Hidden, func(p fluidgen.Param) ir.ParameterType { return hiddenTypes[p.Source] })
	return out
}

func paramField(p fluidgen.Param, pt ir.ParameterType, conv *convert.Converter) ir.Field {
	c := Constraints(p.Field)
	c.ParameterType = pt
	c.Annotation = string(p.Source)

	// Server-side values are not typed for the client.
	ann := ir.Base(ir.BaseAny)
	if pt.Documented() {
		ann = annotate(p.Field, conv)
	}
	if p.OmitEmpty && !ann.IsOptional() {
		ann = ir.Optional(ann)
	}

	var def any
	if !fluidgen.IsUndefined(p.Default) {
		def = p.Default
	}
	return ir.Field{
		Name:        p.Name,
		Annotation:  ann,
		Default:     def,
		Description: p.Field.Tag.Get("doc"),
		Constraints: c,
	}
}

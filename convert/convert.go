// Package convert maps Go types to the IR and IR annotations to TypeScript
// type expressions.
package convert

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/mail"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/broady/fluidgen/fluidtypes"
	"github.com/broady/fluidgen/ir"
)

// maxTupleLen is the longest Go array rendered as a tuple.
const maxTupleLen = 8

// externals maps allowlisted common types to their canonical names.
var externals = map[reflect.Type]string{
	reflect.TypeFor[time.Time]():                    "DateTime",
	reflect.TypeFor[fluidtypes.Date]():              "Date",
	reflect.TypeFor[decimal.Decimal]():              "Decimal",
	reflect.TypeFor[uuid.UUID]():                    "UUID",
	reflect.TypeFor[fluidtypes.Path]():              "Path",
	reflect.TypeFor[fluidtypes.EmailStr]():          "EmailStr",
	reflect.TypeFor[mail.Address]():                 "EmailStr",
	reflect.TypeFor[url.URL]():                      "HttpUrl",
	reflect.TypeFor[fluidtypes.PaymentCardNumber](): "PaymentCardNumber",
	reflect.TypeFor[multipart.FileHeader]():         "UploadFile",
}

// ExternalNames returns the canonical names of every allowlisted type.
func ExternalNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range externals {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// External reports the canonical name of an allowlisted type.
func External(t reflect.Type) (string, bool) {
	name, ok := externals[t]
	return name, ok
}

var (
	unionType    = reflect.TypeFor[fluidtypes.UnionType]()
	optionalType = reflect.TypeFor[fluidtypes.OptionalType]()
	tupleType    = reflect.TypeFor[fluidtypes.TupleType]()
	literalType  = reflect.TypeFor[fluidtypes.LiteralSet]()
	nullType     = reflect.TypeFor[fluidtypes.Null]()
	rawJSONType  = reflect.TypeFor[json.RawMessage]()
	textMarshal  = reflect.TypeFor[interface{ MarshalText() ([]byte, error) }]()
)

// EnumOracle decides whether a named basic type is an enumeration.
type EnumOracle interface {
	IsEnum(t reflect.Type) bool
}

// Converter turns reflect types into annotations. Results are memoized for
// the life of the Converter, so one should be created per generation run.
type Converter struct {
	enums    EnumOracle
	memo     map[reflect.Type]ir.FieldAnnotation
	active   map[reflect.Type]bool
	warnings []ir.Warning
}

// New returns a Converter. A nil oracle treats every named basic type as its
// primitive.
func New(enums EnumOracle) *Converter {
	return &Converter{
		enums:  enums,
		memo:   make(map[reflect.Type]ir.FieldAnnotation),
		active: make(map[reflect.Type]bool),
	}
}

// Warnings returns the classification warnings gathered so far.
func (c *Converter) Warnings() []ir.Warning { return c.warnings }

func (c *Converter) warn(t reflect.Type, format string, args ...any) {
	c.warnings = append(c.warnings, ir.Warning{
		Code:    ir.WarnUnsupportedType,
		Message: fmt.Sprintf(format, args...),
		Source:  t.String(),
	})
}

// ToIR converts t. A nil type converts to any.
func (c *Converter) ToIR(t reflect.Type) ir.FieldAnnotation {
	if t == nil {
		return ir.Base(ir.BaseAny)
	}
	if ann, ok := c.memo[t]; ok {
		return ann
	}
	// A type that refers back to itself through containers.
	if c.active[t] {
		return ir.Base(ir.BaseAny)
	}
	c.active[t] = true
	ann := c.convert(t)
	delete(c.active, t)
	c.memo[t] = ann
	return ann
}

func (c *Converter) convert(t reflect.Type) ir.FieldAnnotation {
	if name, ok := externals[t]; ok {
		return ir.FieldAnnotation{CustomType: name, ClassRef: t, External: true}
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		if ann, ok := c.marker(t); ok {
			return ann
		}
	}

	switch t.Kind() {
	case reflect.Pointer:
		return optional(c.ToIR(t.Elem()))
	case reflect.Slice:
		if t == rawJSONType {
			return ir.Base(ir.BaseAny)
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return ir.Base(ir.BaseString)
		}
		return ir.Array(c.ToIR(t.Elem()))
	case reflect.Array:
		elem := c.ToIR(t.Elem())
		if t.Len() > maxTupleLen {
			return ir.Array(elem)
		}
		elems := make([]ir.FieldAnnotation, t.Len())
		for i := range elems {
			elems[i] = elem
		}
		return ir.Tuple(elems...)
	case reflect.Map:
		return ir.Object(c.mapKey(t.Key()), c.ToIR(t.Elem()))
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return ir.Base(ir.BaseAny)
		}
		return ir.Base(ir.BaseUnknown)
	case reflect.Struct:
		if t == nullType {
			return ir.Base(ir.BaseNull)
		}
		if t.Name() == "" {
			if t.NumField() > 0 {
				c.warn(t, "anonymous struct %s has no name to reference and is typed as any", t)
			}
			return ir.Base(ir.BaseAny)
		}
		return ir.Custom(TypeName(t), t)
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		c.warn(t, "%s has no JSON representation and is typed as unknown", t)
		return ir.Base(ir.BaseUnknown)
	}

	prim := primitive(t.Kind())
	if t.Name() != "" && t.PkgPath() != "" && c.enums != nil && c.enums.IsEnum(t) {
		return ir.Custom(TypeName(t), t)
	}
	return prim
}

// marker handles the fluidtypes container interfaces.
func (c *Converter) marker(t reflect.Type) (ir.FieldAnnotation, bool) {
	switch {
	case t.Implements(optionalType):
		v := reflect.Zero(t).Interface().(fluidtypes.OptionalType)
		return optional(c.ToIR(v.Elem())), true
	case t.Implements(unionType):
		v := reflect.Zero(t).Interface().(fluidtypes.UnionType)
		return c.union(v.Arms()), true
	case t.Implements(tupleType):
		v := reflect.Zero(t).Interface().(fluidtypes.TupleType)
		var elems []ir.FieldAnnotation
		for _, e := range v.Elems() {
			elems = append(elems, c.ToIR(e))
		}
		return ir.Tuple(elems...), true
	case t.Implements(literalType):
		v := reflect.Zero(t).Interface().(fluidtypes.LiteralSet)
		return Literals(v.LiteralValues()), true
	}
	return ir.FieldAnnotation{}, false
}

// union collapses a two-arm union with null into an optional.
func (c *Converter) union(arms []reflect.Type) ir.FieldAnnotation {
	if len(arms) == 2 {
		switch nullType {
		case arms[0]:
			return optional(c.ToIR(arms[1]))
		case arms[1]:
			return optional(c.ToIR(arms[0]))
		}
	}
	out := make([]ir.FieldAnnotation, 0, len(arms))
	for _, a := range arms {
		out = append(out, c.ToIR(a))
	}
	return ir.Union(out...)
}

func (c *Converter) mapKey(t reflect.Type) ir.FieldAnnotation {
	switch {
	case t.Kind() == reflect.String:
		return c.ToIR(t)
	case isInteger(t.Kind()):
		return ir.Base(ir.BaseNumber)
	case t.Implements(textMarshal):
		return ir.Base(ir.BaseString)
	}
	c.warn(t, "map key %s is not a JSON object key and is typed as string", t)
	return ir.Base(ir.BaseString)
}

// optional wraps inner unless it is already optional.
func optional(inner ir.FieldAnnotation) ir.FieldAnnotation {
	if inner.IsOptional() {
		return inner
	}
	return ir.Optional(inner)
}

// Literals builds a literal annotation from Go values. Strings are kept as
// string literals; everything else is stringified.
func Literals(values []any) ir.FieldAnnotation {
	lv := make([]ir.LiteralValue, 0, len(values))
	for _, v := range values {
		switch v := v.(type) {
		case string:
			lv = append(lv, ir.LiteralValue{Value: v, IsStringLiteral: true})
		case bool:
			lv = append(lv, ir.LiteralValue{Value: strconv.FormatBool(v)})
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.String {
				lv = append(lv, ir.LiteralValue{Value: rv.String(), IsStringLiteral: true})
				continue
			}
			lv = append(lv, ir.LiteralValue{Value: fmt.Sprint(v)})
		}
	}
	return ir.Literal(lv...)
}

func primitive(k reflect.Kind) ir.FieldAnnotation {
	switch {
	case k == reflect.Bool:
		return ir.Base(ir.BaseBoolean)
	case k == reflect.String:
		return ir.Base(ir.BaseString)
	case isInteger(k), k == reflect.Float32, k == reflect.Float64:
		return ir.Base(ir.BaseNumber)
	}
	return ir.Base(ir.BaseAny)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// TypeName returns the TypeScript name of a declared type. Generic
// instantiations append the names of their type arguments, so Page[User]
// becomes PageUser.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	return typeExprName(t.Name())
}

// typeExprName names a type expression as printed by reflect, such as
// "Page[example.com/shop.User]" or "[]*shop.Order".
func typeExprName(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "*"):
		return typeExprName(s[1:])
	case strings.HasPrefix(s, "[]"):
		return typeExprName(s[2:]) + "List"
	case strings.HasPrefix(s, "map["):
		return "Map"
	case strings.HasPrefix(s, "["):
		if end := strings.IndexByte(s, ']'); end > 0 {
			return typeExprName(s[end+1:]) + "Array"
		}
	}
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return exportName(lastIdent(s))
	}
	var b strings.Builder
	b.WriteString(exportName(lastIdent(s[:open])))
	for _, arg := range splitTopLevel(s[open+1 : len(s)-1]) {
		b.WriteString(typeExprName(arg))
	}
	return b.String()
}

// lastIdent strips the package path from a qualified identifier.
func lastIdent(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitTopLevel splits on commas not nested in brackets.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

package fluidgen

import (
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Undefined is the Default of a parameter that has no `default` tag.
// Such a parameter is required unless its type is optional.
var Undefined = undefined{}

type undefined struct{}

func (undefined) String() string { return "Undefined" }

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// ParamSource is the struct tag (or special field type) that placed a
// parameter.
type ParamSource string

const (
	SourcePath       ParamSource = "path"
	SourceQuery      ParamSource = "query"
	SourceHeader     ParamSource = "header"
	SourceCookie     ParamSource = "cookie"
	SourceJSON       ParamSource = "json"
	SourceBody       ParamSource = "body"
	SourceForm       ParamSource = "form"
	SourceFile       ParamSource = "file"
	SourceSecurity   ParamSource = "security"
	SourceInject     ParamSource = "inject"
	SourceRequest    ParamSource = "request"
	SourceBackground ParamSource = "background"
)

// Param is one field of a request struct bound to part of the HTTP request.
type Param struct {
	// Name is the wire name: path variable, query key, header name or JSON key.
	Name   string
	Field  reflect.StructField
	Index  []int // relative to the root request struct
	Source ParamSource

	// Default is the parsed `default` tag, or Undefined.
	Default any

	// OmitEmpty is set for json fields tagged omitempty or omitzero.
	OmitEmpty bool

	// Scheme and Scopes are set for security params.
	Scheme string
	Scopes []string
}

// Type returns the field's Go type.
func (p Param) Type() reflect.Type { return p.Field.Type }

// Tag returns the field's struct tag.
func (p Param) Tag() reflect.StructTag { return p.Field.Tag }

// Dependant is a request struct resolved into parameter groups. Embedded
// structs without a placement tag become sub-dependencies.
type Dependant struct {
	Type reflect.Type

	PathParams   []Param
	QueryParams  []Param
	HeaderParams []Param
	CookieParams []Param

	// BodyParams holds json, body, form and file params.
	BodyParams []Param

	SecurityParams []Param

	// Hidden holds injected, request and background params.
	Hidden []Param

	Dependencies []*Dependant
}

var (
	requestType    = reflect.TypeFor[*http.Request]()
	backgroundType = reflect.TypeFor[*BackgroundTasks]()
)

// ResolveDependant walks the request type t (a struct or pointer to struct)
// and groups its fields by placement. Non-struct request types resolve to an
// empty Dependant.
func ResolveDependant(t reflect.Type) (*Dependant, error) {
	if t == nil {
		return &Dependant{}, nil
	}
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	d := &Dependant{Type: t}
	if st.Kind() != reflect.Struct {
		return d, nil
	}
	if err := d.resolve(st, nil); err != nil {
		return nil, errors.Wrapf(err, "resolve %s", t)
	}
	return d, nil
}

func (d *Dependant) resolve(st reflect.Type, prefix []int) error {
	for i := range st.NumField() {
		f := st.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && !hasPlacementTag(f.Tag) {
			sub := &Dependant{Type: f.Type}
			if err := sub.resolve(f.Type, index); err != nil {
				return err
			}
			d.Dependencies = append(d.Dependencies, sub)
			continue
		}
		if !f.IsExported() {
			continue
		}

		p := Param{Field: f, Index: index, Name: f.Name, Default: Undefined}

		switch {
		case f.Type == requestType:
			p.Source = SourceRequest
			d.Hidden = append(d.Hidden, p)
			continue
		case f.Type == backgroundType:
			p.Source = SourceBackground
			d.Hidden = append(d.Hidden, p)
			continue
		}
		if _, ok := f.Tag.Lookup("inject"); ok {
			p.Source = SourceInject
			d.Hidden = append(d.Hidden, p)
			continue
		}
		if sec, ok := f.Tag.Lookup("security"); ok {
			scheme, scopes, _ := strings.Cut(sec, ":")
			p.Source = SourceSecurity
			p.Scheme = scheme
			p.Name = scheme
			if scopes != "" {
				p.Scopes = strings.Split(scopes, ",")
			}
			d.SecurityParams = append(d.SecurityParams, p)
			continue
		}

		source, name, opts, ok := placement(f.Tag)
		if !ok {
			source = SourceQuery
		}
		if name == "-" {
			continue
		}
		if name != "" {
			p.Name = name
		}
		p.Source = source
		p.OmitEmpty = slices.Contains(opts, "omitempty") || slices.Contains(opts, "omitzero")

		if def, ok := f.Tag.Lookup("default"); ok {
			v, err := ParseDefault(def, f.Type)
			if err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
			p.Default = v
		}

		switch source {
		case SourcePath:
			d.PathParams = append(d.PathParams, p)
		case SourceQuery:
			d.QueryParams = append(d.QueryParams, p)
		case SourceHeader:
			d.HeaderParams = append(d.HeaderParams, p)
		case SourceCookie:
			d.CookieParams = append(d.CookieParams, p)
		default:
			d.BodyParams = append(d.BodyParams, p)
		}
	}
	return nil
}

var placementTags = []ParamSource{
	SourcePath, SourceQuery, SourceHeader, SourceCookie,
	SourceJSON, SourceBody, SourceForm, SourceFile,
}

// placement returns the first placement tag present on a field.
func placement(tag reflect.StructTag) (ParamSource, string, []string, bool) {
	for _, src := range placementTags {
		if v, ok := tag.Lookup(string(src)); ok {
			name, rest, _ := strings.Cut(v, ",")
			var opts []string
			if rest != "" {
				opts = strings.Split(rest, ",")
			}
			return src, name, opts, true
		}
	}
	return "", "", nil, false
}

func hasPlacementTag(tag reflect.StructTag) bool {
	_, _, _, ok := placement(tag)
	if ok {
		return true
	}
	for _, k := range []string{"inject", "security"} {
		if _, ok := tag.Lookup(k); ok {
			return true
		}
	}
	return false
}

// Flat returns a copy with every sub-dependency's params merged in after the
// parent's own, depth first.
func (d *Dependant) Flat() *Dependant {
	out := &Dependant{Type: d.Type}
	var merge func(*Dependant)
	merge = func(x *Dependant) {
		out.PathParams = append(out.PathParams, x.PathParams...)
		out.QueryParams = append(out.QueryParams, x.QueryParams...)
		out.HeaderParams = append(out.HeaderParams, x.HeaderParams...)
		out.CookieParams = append(out.CookieParams, x.CookieParams...)
		out.BodyParams = append(out.BodyParams, x.BodyParams...)
		out.SecurityParams = append(out.SecurityParams, x.SecurityParams...)
		out.Hidden = append(out.Hidden, x.Hidden...)
		for _, sub := range x.Dependencies {
			merge(sub)
		}
	}
	merge(d)
	return out
}

// ParseDefault converts a `default` tag value to a Go value matching t's
// kind. Pointers are parsed as their element; slices split on commas.
func ParseDefault(s string, t reflect.Type) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Bool:
		return strconv.ParseBool(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(s, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(s, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(s, t.Bits())
	case reflect.Slice:
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v, err := ParseDefault(strings.TrimSpace(part), t.Elem())
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	// Named non-basic types (e.g. fluidtypes.Date) keep the raw text.
	return s, nil
}

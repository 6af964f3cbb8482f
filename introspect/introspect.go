// Package introspect turns a fluidgen.App's route table into IR route and
// model nodes.
package introspect

import (
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-openapi/inflect"
	"go.uber.org/zap"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/internal/gosrc"
	"github.com/broady/fluidgen/ir"
	"github.com/broady/fluidgen/streaming"
)

// Introspector holds the per-run state shared by route and model
// introspection.
type Introspector struct {
	App    *fluidgen.App
	Conv   *convert.Converter
	Index  *gosrc.Index
	Logger *zap.Logger
}

func (in *Introspector) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

// Routes introspects every registered route. Routes that fail become
// warnings and are left out.
func (in *Introspector) Routes() ([]*ir.RouteNode, []ir.Warning) {
	var (
		nodes    []*ir.RouteNode
		warnings []ir.Warning
	)
	for _, route := range in.App.Routes() {
		node, err := in.RouteToNode(route)
		if err != nil {
			in.logger().Warn("skipping route", zap.String("route", route.Path), zap.Error(err))
			warnings = append(warnings, ir.Warning{
				Code:    ir.WarnRouteSkipped,
				Message: err.Error(),
				Source:  route.Path,
			})
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, warnings
}

// RouteToNode builds the IR node of one route.
func (in *Introspector) RouteToNode(route *fluidgen.Route) (*ir.RouteNode, error) {
	dep, err := route.Dependant()
	if err != nil {
		return nil, err
	}
	src, err := in.Index.Func(route.Func)
	if err != nil {
		return nil, errors.Wrap(err, "locate endpoint")
	}

	doc := route.Doc
	if doc == "" {
		doc = src.Doc().Text
	}
	node := &ir.RouteNode{
		Name:       routeName(route),
		Methods:    slices.Clone(route.Methods),
		Path:       route.Path,
		Parameters: ClassifyParameters(dep, in.Conv),
		Location: ir.ModuleLocation{
			ModulePath: src.Package.PkgPath,
			FilePath:   src.File,
			External:   !in.Index.UnderRoot(src.File),
		},
		Doc:       doc,
		Security:  in.securityRequirements(route, dep.Flat()),
		Streaming: streaming.Classify(route, in.Index),
	}
	node.ReturnType = in.returnType(route, node.Streaming)
	return node, nil
}

// returnType is the IR of the response. Event streams are typed by their
// element; other streams have no JSON type.
func (in *Introspector) returnType(route *fluidgen.Route, s *ir.Streaming) *ir.FieldAnnotation {
	t := route.ResponseClass
	if t == nil {
		t = route.Response
	}
	if t == nil {
		return nil
	}
	if s != nil {
		if elem, ok := fluidgen.EventStreamElem(t); ok {
			ann := in.Conv.ToIR(elem)
			return &ann
		}
		return nil
	}
	ann := in.Conv.ToIR(t)
	return &ann
}

// routeName is the explicit handler name, or the endpoint function's name
// in lower camel case. Function literals are named after their method and
// path, so GET /users/{id} becomes getUsersById.
func routeName(route *fluidgen.Route) string {
	if route.Name != "" {
		return route.Name
	}
	name := ""
	if fn := runtime.FuncForPC(reflect.ValueOf(route.Func).Pointer()); fn != nil {
		_, name = gosrc.FuncName(fn.Name())
	}
	if name != "" && !isLiteralName(name) {
		return inflect.CamelizeDownFirst(name)
	}

	method := "handle"
	if len(route.Methods) > 0 {
		method = strings.ToLower(route.Methods[0])
	}
	parts := []string{method}
	for _, seg := range strings.Split(route.Path, "/") {
		switch {
		case seg == "":
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			parts = append(parts, "by", strings.TrimSuffix(strings.Trim(seg, "{}"), "..."))
		default:
			parts = append(parts, seg)
		}
	}
	return inflect.CamelizeDownFirst(strings.Join(parts, "_"))
}

// isLiteralName matches compiler names of function literals: func1, func2.
func isLiteralName(name string) bool {
	rest, ok := strings.CutPrefix(name, "func")
	if !ok || rest == "" {
		return false
	}
	return strings.Trim(rest, "0123456789.") == ""
}

// securityRequirements collects requirements from security fields and from
// the handler's declared schemes, once per scheme.
func (in *Introspector) securityRequirements(route *fluidgen.Route, dep *fluidgen.Dependant) []ir.SecurityRequirement {
	var out []ir.SecurityRequirement
	seen := make(map[string]bool)
	add := func(name string, scopes []string) {
		if seen[name] {
			return
		}
		seen[name] = true
		req := ir.SecurityRequirement{SchemeName: name, SchemeType: "unknown", Scopes: slices.Clone(scopes)}
		if scheme, ok := in.App.Scheme(name); ok {
			req.SchemeType = scheme.Type
			req.Description = scheme.Description
			if scheme.Type == fluidgen.SchemeAPIKey {
				req.Location = scheme.In
				req.ParameterName = scheme.Name
			}
		}
		out = append(out, req)
	}
	for _, p := range dep.SecurityParams {
		add(p.Scheme, p.Scopes)
	}
	for _, s := range route.Security {
		add(s.Scheme, s.Scopes)
	}
	return out
}

// ModelToNode builds the IR node of a struct or enum type.
func (in *Introspector) ModelToNode(t reflect.Type) (*ir.ModelNode, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	file, err := in.Index.TypeFile(t)
	if err != nil {
		return nil, err
	}
	node := &ir.ModelNode{
		Name: convert.TypeName(t),
		Location: ir.ModuleLocation{
			ModulePath: t.PkgPath(),
			FilePath:   file,
			External:   !in.Index.UnderRoot(file),
		},
		Doc: in.Index.TypeDoc(t).Text,
	}

	if t.Kind() != reflect.Struct {
		consts, err := in.Index.EnumConstants(t)
		if err != nil {
			return nil, err
		}
		if len(consts) == 0 {
			return nil, errors.Newf("%s is neither a struct nor an enum", t)
		}
		node.IsEnum = true
		for _, c := range consts {
			node.Fields = append(node.Fields, ir.Field{
				Name:        enumMemberName(node.Name, c.Name),
				Annotation:  valueAnnotation(c.Value),
				Default:     c.Value,
				Description: c.Doc,
			})
		}
		return node, nil
	}

	if err := in.structFields(t, node); err != nil {
		return nil, errors.Wrapf(err, "model %s", node.Name)
	}
	return node, nil
}

// structFields appends t's JSON fields to node. Embedded project structs
// become bases; other embedded structs are flattened the way encoding/json
// does.
func (in *Introspector) structFields(t reflect.Type, node *ir.ModelNode) error {
	docs := in.Index.FieldDocs(t)
	for i := range t.NumField() {
		f := t.Field(i)
		name, omitEmpty, skip := parseJSONTag(f)
		if skip {
			continue
		}
		if f.Anonymous && f.Tag.Get("json") == "" {
			et := f.Type
			for et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if _, external := convert.External(et); !external && et.Name() != "" && in.Index.IsProjectType(et) {
					node.Inheritance = append(node.Inheritance, convert.TypeName(et))
					node.Bases = append(node.Bases, ir.Custom(convert.TypeName(et), et))
					continue
				}
				if err := in.structFields(et, node); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		ann := annotate(f, in.Conv)
		if omitEmpty && !ann.IsOptional() {
			ann = ir.Optional(ann)
		}
		var def any
		if raw, ok := f.Tag.Lookup("default"); ok {
			v, err := fluidgen.ParseDefault(raw, f.Type)
			if err != nil {
				return errors.Wrapf(err, "field %s: default %q", f.Name, raw)
			}
			def = v
		}
		desc := f.Tag.Get("doc")
		fieldDoc := docs[f.Name]
		if desc == "" {
			desc = fieldDoc.Text
		}
		c := Constraints(f)
		if fieldDoc.Deprecated != "" {
			c.Deprecated = true
		}
		node.Fields = append(node.Fields, ir.Field{
			Name:        name,
			Annotation:  ann,
			Default:     def,
			Description: desc,
			Constraints: c,
		})
	}
	return nil
}

// parseJSONTag returns the JSON name of f and whether it is omitted when
// empty or skipped entirely.
func parseJSONTag(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// enumMemberName drops the type-name prefix Go constants conventionally
// carry, so RoleAdmin of Role becomes Admin.
func enumMemberName(typeName, constName string) string {
	if rest, ok := strings.CutPrefix(constName, typeName); ok && rest != "" && 'A' <= rest[0] && rest[0] <= 'Z' {
		return rest
	}
	return constName
}

func valueAnnotation(v any) ir.FieldAnnotation {
	switch v.(type) {
	case string:
		return ir.Base(ir.BaseString)
	case bool:
		return ir.Base(ir.BaseBoolean)
	case int64, float64:
		return ir.Base(ir.BaseNumber)
	}
	return ir.Base(ir.BaseAny)
}

// DiscoverModels walks every custom type reachable from routes and returns
// the project models in discovery order. Types outside the project and
// allowlisted externals are not models.
func (in *Introspector) DiscoverModels(routes []*ir.RouteNode) ([]*ir.ModelNode, []ir.Warning) {
	var (
		models   []*ir.ModelNode
		warnings []ir.Warning
		queue    []ir.FieldAnnotation
	)
	seen := make(map[string]bool)

	for _, r := range routes {
		for _, p := range r.Parameters {
			if p.Documented() {
				queue = append(queue, p.Annotation)
			}
		}
		if r.ReturnType != nil {
			queue = append(queue, *r.ReturnType)
		}
	}

	for len(queue) > 0 {
		ann := queue[0]
		queue = queue[1:]
		// Children go to the back of the queue so siblings are visited first.
		queue = append(queue, ann.Args...)

		if ann.CustomType == "" || ann.ClassRef == nil || ann.External {
			continue
		}
		if seen[ann.CustomType] || !in.Index.IsProjectType(ann.ClassRef) {
			continue
		}
		seen[ann.CustomType] = true

		node, err := in.ModelToNode(ann.ClassRef)
		if err != nil {
			in.logger().Warn("skipping model", zap.String("model", ann.CustomType), zap.Error(err))
			warnings = append(warnings, ir.Warning{
				Code:    ir.WarnModelSkipped,
				Message: err.Error(),
				Source:  ann.CustomType,
			})
			continue
		}
		models = append(models, node)
		for _, f := range node.Fields {
			queue = append(queue, f.Annotation)
		}
		queue = append(queue, node.Bases...)
	}
	return models, warnings
}

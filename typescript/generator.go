// Package typescript renders IR nodes as TypeScript source: interfaces and
// enums for models, typed client functions for routes, and the shared
// runtime file.
package typescript

import (
	"slices"
	"strings"

	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/ir"
	"github.com/broady/fluidgen/resolve"
)

// Generator turns an ir.App into generated files.
type Generator struct {
	Resolver *resolve.Resolver
	Renderer convert.Renderer
	Runtime  RuntimeOptions
}

// File is one generated output.
type File struct {
	// Path is absolute.
	Path    string
	Content string

	// Sources are the Go files whose nodes produced this file. The runtime
	// file has none.
	Sources []string
}

// group collects the nodes that share an output path.
type group struct {
	path    string
	models  []*ir.ModelNode
	routes  []*ir.RouteNode
	sources []string
}

func (grp *group) addSource(src string) {
	if !slices.Contains(grp.sources, src) {
		grp.sources = append(grp.sources, src)
	}
}

// Generate renders every file for app followed by the runtime file. Nodes
// whose output path cannot be resolved are skipped with a warning.
func (g *Generator) Generate(app *ir.App) ([]File, []ir.Warning) {
	var warnings []ir.Warning
	var order []*group
	byPath := make(map[string]*group)

	groupFor := func(loc ir.ModuleLocation, name string) *group {
		path, err := g.Resolver.OutputPath(loc)
		if err != nil {
			warnings = append(warnings, ir.Warning{
				Code:    ir.WarnPathResolution,
				Message: err.Error(),
				Source:  name,
			})
			return nil
		}
		grp, ok := byPath[path]
		if !ok {
			grp = &group{path: path}
			byPath[path] = grp
			order = append(order, grp)
		}
		grp.addSource(loc.FilePath)
		return grp
	}

	for _, m := range app.Models {
		if grp := groupFor(m.Location, m.Name); grp != nil {
			grp.models = append(grp.models, m)
		}
	}
	for _, r := range app.Routes {
		if grp := groupFor(r.Location, r.Name); grp != nil {
			grp.routes = append(grp.routes, r)
		}
	}

	files := make([]File, 0, len(order)+1)
	for _, grp := range order {
		content, warns := g.file(app, grp)
		warnings = append(warnings, warns...)
		files = append(files, File{Path: grp.path, Content: content, Sources: grp.sources})
	}
	files = append(files, File{
		Path:    g.Resolver.RuntimePath(),
		Content: Runtime(g.Runtime, app.HasStreamingRoutes()),
	})
	return files, warnings
}

func (g *Generator) file(app *ir.App, grp *group) (string, []ir.Warning) {
	var (
		clients      []string
		declarations []string
		types, funcs []string
		rendered     []ir.FieldAnnotation
	)

	for _, r := range grp.routes {
		code, t, f := g.Client(r)
		clients = append(clients, code)
		types = append(types, t...)
		funcs = append(funcs, f...)
		rendered = append(rendered, routeAnnotations(r)...)
	}
	for _, m := range grp.models {
		declarations = append(declarations, g.Declaration(m))
		rendered = append(rendered, modelAnnotations(m)...)
	}
	if usesExternal(rendered) {
		types = append(types, fluidTypesType)
	}

	imports, warnings := g.imports(app, grp, rendered, types, funcs)

	sections := []string{Header}
	if len(imports) > 0 {
		sections = append(sections, strings.Join(imports, "\n"))
	}
	if len(clients) > 0 {
		sections = append(sections, strings.Join(clients, "\n\n"))
	}
	if len(declarations) > 0 {
		sections = append(sections, strings.Join(declarations, "\n\n"))
	}
	return strings.Join(sections, "\n\n") + "\n", warnings
}

// imports renders the runtime imports followed by the model imports.
// Referenced types that are not project models are not imported; the
// renderer has already turned them into any.
func (g *Generator) imports(app *ir.App, grp *group, rendered []ir.FieldAnnotation, types, funcs []string) ([]string, []ir.Warning) {
	var lines []string
	if len(types) > 0 || len(funcs) > 0 {
		if path, ok := resolve.RelativeImportPath(grp.path, g.Resolver.RuntimePath()); ok {
			lines = append(lines, resolve.RuntimeImports(path, types, funcs)...)
		}
	}

	refs := make(map[string]ir.ModuleLocation)
	for _, m := range grp.models {
		for _, base := range m.Inheritance {
			addRef(app, refs, base)
		}
	}
	for _, ann := range rendered {
		for _, name := range ann.ReferencedTypes() {
			addRef(app, refs, name)
		}
	}

	var warnings []ir.Warning
	for name, loc := range refs {
		if _, err := g.Resolver.OutputPath(loc); err != nil {
			warnings = append(warnings, ir.Warning{
				Code:    ir.WarnPathResolution,
				Message: err.Error(),
				Source:  name,
			})
			delete(refs, name)
		}
	}
	byPath, err := g.Resolver.TypeImports(grp.path, refs)
	if err != nil {
		// Unresolvable references were removed above.
		warnings = append(warnings, ir.Warning{Code: ir.WarnPathResolution, Message: err.Error(), Source: grp.path})
		return lines, warnings
	}
	return append(lines, resolve.ImportBlock(byPath)...), warnings
}

func addRef(app *ir.App, refs map[string]ir.ModuleLocation, name string) {
	if m := app.FindModel(name); m != nil {
		refs[name] = m.Location
	}
}

// routeAnnotations returns the annotations a route's client renders: the
// client parameters of every method and, for plain fetch clients, the
// return type.
func routeAnnotations(r *ir.RouteNode) []ir.FieldAnnotation {
	var out []ir.FieldAnnotation
	for _, method := range r.Methods {
		for _, p := range r.ClientParameters(method) {
			out = append(out, p.Annotation)
		}
	}
	if r.ReturnType != nil && !r.IsStreaming() {
		out = append(out, *r.ReturnType)
	}
	return out
}

func modelAnnotations(m *ir.ModelNode) []ir.FieldAnnotation {
	if m.IsEnum {
		return nil
	}
	out := make([]ir.FieldAnnotation, 0, len(m.Fields))
	for _, f := range m.Fields {
		out = append(out, f.Annotation)
	}
	return out
}

func usesExternal(anns []ir.FieldAnnotation) bool {
	for _, ann := range anns {
		found := false
		ann.Walk(func(a ir.FieldAnnotation) {
			if a.External {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}

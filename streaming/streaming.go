// Package streaming decides whether a route streams its response and which
// client pattern the generated code should use to consume it.
//
// Classification runs in three tiers, each of which short-circuits:
//
//  1. Type identity: an EventStream response is server-sent events; a
//     StreamingResponse response continues to tier 2.
//  2. Call site: the endpoint's own return statements are searched for the
//     construction of a StreamingResponse, and its media type is read from a
//     constant argument.
//  3. Return scan: endpoints declared to return an interface are scanned the
//     same way for either wrapper.
package streaming

import (
	"go/ast"
	"go/constant"
	"go/types"
	"mime"
	"reflect"
	"strings"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/internal/gosrc"
	"github.com/broady/fluidgen/ir"
)

const (
	MediaEventStream = "text/event-stream"

	wrapperName     = "StreamingResponse"
	constructorName = "NewStreamingResponse"
	eventStreamName = "EventStream"
)

// frameworkPkg is the import path wrappers must be declared in.
var frameworkPkg = reflect.TypeFor[fluidgen.StreamingResponse]().PkgPath()

// ClientTypeForMediaType maps a response media type to the client pattern
// that consumes it. Parameters such as charset are ignored.
func ClientTypeForMediaType(mediaType string) ir.StreamingClientType {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	switch mt {
	case MediaEventStream:
		return ir.StreamEventSource
	case "application/json", "application/x-ndjson", "application/jsonlines", "application/x-jsonlines":
		return ir.StreamReadable
	case "application/pdf", "application/zip", "application/octet-stream":
		return ir.StreamFileDownload
	}
	major, _, _ := strings.Cut(mt, "/")
	switch major {
	case "video", "audio", "image":
		return ir.StreamFileDownload
	case "text":
		return ir.StreamText
	}
	return ir.StreamReadable
}

// Classify returns the streaming classification of route, or nil when the
// route returns an ordinary value.
func Classify(route *fluidgen.Route, idx *gosrc.Index) *ir.Streaming {
	for _, t := range []reflect.Type{route.ResponseClass, route.Response} {
		if t == nil {
			continue
		}
		if _, ok := fluidgen.EventStreamElem(t); ok {
			return &ir.Streaming{ClientType: ir.StreamEventSource, MediaType: MediaEventStream}
		}
		if fluidgen.IsStreamingResponse(t) {
			return fromCallSite(route, idx)
		}
	}
	if route.Response != nil && route.Response.Kind() == reflect.Interface {
		return scanReturns(route, idx)
	}
	return nil
}

// fromCallSite is tier 2. Without a constant media type the response is
// treated as a readable stream.
func fromCallSite(route *fluidgen.Route, idx *gosrc.Index) *ir.Streaming {
	fallback := &ir.Streaming{ClientType: ir.StreamReadable}
	if idx == nil || route.Func == nil {
		return fallback
	}
	src, err := idx.Func(route.Func)
	if err != nil {
		return fallback
	}
	for _, c := range constructions(src) {
		if c.eventStream {
			continue
		}
		if c.mediaType == "" {
			return fallback
		}
		return &ir.Streaming{ClientType: ClientTypeForMediaType(c.mediaType), MediaType: c.mediaType}
	}
	return fallback
}

// scanReturns is tier 3, for endpoints whose declared result is an
// interface. Only a recognized construction makes the route a stream.
func scanReturns(route *fluidgen.Route, idx *gosrc.Index) *ir.Streaming {
	if idx == nil || route.Func == nil {
		return nil
	}
	src, err := idx.Func(route.Func)
	if err != nil {
		return nil
	}
	for _, c := range constructions(src) {
		switch {
		case c.eventStream:
			return &ir.Streaming{ClientType: ir.StreamEventSource, MediaType: MediaEventStream}
		case c.mediaType == "":
			return &ir.Streaming{ClientType: ir.StreamReadable}
		default:
			return &ir.Streaming{ClientType: ClientTypeForMediaType(c.mediaType), MediaType: c.mediaType}
		}
	}
	return nil
}

// construction is a wrapper value built in a return statement.
type construction struct {
	eventStream bool
	mediaType   string // empty when not a constant
}

// constructions lists the wrappers built by fn's own return statements, in
// source order. Returns inside nested function literals belong to those
// literals and are skipped. A returned local variable is traced to the
// expression it was last assigned from.
func constructions(fn *gosrc.FuncSource) []construction {
	info := fn.Info()
	body := fn.Body()
	if info == nil || body == nil {
		return nil
	}

	assigned := make(map[types.Object]ast.Expr)
	var results []ast.Expr
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.AssignStmt:
			if len(n.Lhs) == len(n.Rhs) {
				for i, lhs := range n.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						if obj := objectOf(info, id); obj != nil {
							assigned[obj] = n.Rhs[i]
						}
					}
				}
			}
		case *ast.ReturnStmt:
			if len(n.Results) > 0 {
				results = append(results, n.Results[0])
			}
		}
		return true
	})

	var out []construction
	for _, expr := range results {
		expr = unwrap(expr)
		if id, ok := expr.(*ast.Ident); ok {
			if rhs, ok := assigned[objectOf(info, id)]; ok {
				expr = unwrap(rhs)
			}
		}
		if c, ok := recognize(info, expr); ok {
			out = append(out, c)
		}
	}
	return out
}

func objectOf(info *types.Info, id *ast.Ident) types.Object {
	if obj := info.Defs[id]; obj != nil {
		return obj
	}
	return info.Uses[id]
}

// unwrap strips parentheses and address-of operators.
func unwrap(e ast.Expr) ast.Expr {
	for {
		switch x := e.(type) {
		case *ast.ParenExpr:
			e = x.X
		case *ast.UnaryExpr:
			e = x.X
		default:
			return e
		}
	}
}

func recognize(info *types.Info, expr ast.Expr) (construction, bool) {
	switch e := expr.(type) {
	case *ast.CallExpr:
		if !isConstructor(info, e.Fun) || len(e.Args) < 2 {
			return construction{}, false
		}
		return construction{mediaType: constString(info, e.Args[1])}, true
	case *ast.CompositeLit:
		named := frameworkNamed(info.TypeOf(e))
		if named == nil {
			return construction{}, false
		}
		switch named.Obj().Name() {
		case eventStreamName:
			return construction{eventStream: true}, true
		case wrapperName:
			return construction{mediaType: literalMediaType(info, e)}, true
		}
	}
	return construction{}, false
}

// isConstructor reports whether fun resolves to the framework's
// NewStreamingResponse function.
func isConstructor(info *types.Info, fun ast.Expr) bool {
	var id *ast.Ident
	switch f := fun.(type) {
	case *ast.Ident:
		id = f
	case *ast.SelectorExpr:
		id = f.Sel
	default:
		return false
	}
	fn, ok := info.Uses[id].(*types.Func)
	return ok && fn.Pkg() != nil && fn.Pkg().Path() == frameworkPkg && fn.Name() == constructorName
}

// frameworkNamed returns t's named type when it is declared in the framework
// package.
func frameworkNamed(t types.Type) *types.Named {
	if t == nil {
		return nil
	}
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		return nil
	}
	named = named.Origin()
	if pkg := named.Obj().Pkg(); pkg == nil || pkg.Path() != frameworkPkg {
		return nil
	}
	return named
}

func literalMediaType(info *types.Info, lit *ast.CompositeLit) string {
	for i, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if key, ok := kv.Key.(*ast.Ident); ok && key.Name == "MediaType" {
				return constString(info, kv.Value)
			}
			continue
		}
		// Positional: Body, MediaType.
		if i == 1 {
			return constString(info, elt)
		}
	}
	return ""
}

func constString(info *types.Info, e ast.Expr) string {
	tv, ok := info.Types[e]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return ""
	}
	return constant.StringVal(tv.Value)
}

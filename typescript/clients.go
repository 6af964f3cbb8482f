package typescript

import (
	"slices"
	"strings"

	"github.com/broady/fluidgen/ir"
)

// Runtime symbols referenced by generated clients.
const (
	apiResultType      = "ApiResult"
	getBaseURLFn       = "getBaseUrl"
	handleResponseFn   = "handleResponse"
	sseCallbacksType   = "SSECallbacks"
	sseConnectionType  = "SSEConnection"
	sseRequestInitType = "SSERequestInit"
	streamingCallbacks = "StreamingCallbacks"
	textCallbacksType  = "TextStreamCallbacks"
	fluidTypesType     = "FluidTypes"
)

// clientKind is one call pattern. Every route uses exactly one, chosen by
// its streaming classification.
type clientKind struct {
	// label qualifies the doc comment, e.g. "Server-Sent Events".
	label string

	async bool

	result func(g *Generator, r *ir.RouteNode) string

	// extra are the trailing signature parameters with their docs.
	extra     []string
	extraDocs []string

	body func(g *Generator, b *CodeBuilder, r *ir.RouteNode, method string)

	// types and funcs are the runtime symbols the client uses.
	types []string
	funcs []string
}

var (
	fetchKind = clientKind{
		async:     true,
		result:    (*Generator).fetchResult,
		extra:     []string{"options?: RequestInit"},
		extraDocs: []string{"@param options - Additional fetch options"},
		body:      (*Generator).fetchBody,
		types:     []string{apiResultType},
		funcs:     []string{getBaseURLFn, handleResponseFn},
	}
	sseKind = clientKind{
		label:     "Server-Sent Events",
		result:    constResult("SSEConnection"),
		extra:     []string{"callbacks: SSECallbacks", "options?: SSERequestInit"},
		extraDocs: []string{"@param callbacks - SSE event handlers", "@param options - EventSource options"},
		body:      (*Generator).sseBody,
		types:     []string{sseCallbacksType, sseConnectionType, sseRequestInitType},
		funcs:     []string{getBaseURLFn},
	}
	readableKind = clientKind{
		label:     "JSON/data streaming",
		async:     true,
		result:    constResult("Promise<void>"),
		extra:     []string{"callbacks: StreamingCallbacks<any>", "options?: RequestInit"},
		extraDocs: []string{"@param callbacks - Streaming event handlers", "@param options - Request options"},
		body:      (*Generator).readableBody,
		types:     []string{streamingCallbacks},
		funcs:     []string{getBaseURLFn},
	}
	downloadKind = clientKind{
		label:     "File download",
		async:     true,
		result:    constResult("Promise<Blob>"),
		extra:     []string{"options?: RequestInit"},
		extraDocs: []string{"@param options - Request options"},
		body:      (*Generator).downloadBody,
		funcs:     []string{getBaseURLFn},
	}
	textKind = clientKind{
		label:     "Text streaming",
		async:     true,
		result:    constResult("Promise<void>"),
		extra:     []string{"callbacks: TextStreamCallbacks", "options?: RequestInit"},
		extraDocs: []string{"@param callbacks - Streaming event handlers", "@param options - Request options"},
		body:      (*Generator).textBody,
		types:     []string{textCallbacksType},
		funcs:     []string{getBaseURLFn},
	}
)

func constResult(s string) func(*Generator, *ir.RouteNode) string {
	return func(*Generator, *ir.RouteNode) string { return s }
}

func kindOf(r *ir.RouteNode) clientKind {
	if !r.IsStreaming() {
		return fetchKind
	}
	switch r.Streaming.ClientType {
	case ir.StreamEventSource:
		return sseKind
	case ir.StreamFileDownload:
		return downloadKind
	case ir.StreamText:
		return textKind
	}
	return readableKind
}

// Client renders the call function of a route: one function for a
// single-method route, or an object keyed by method otherwise. It also
// returns the runtime types and functions the code uses.
func (g *Generator) Client(r *ir.RouteNode) (code string, types, funcs []string) {
	kind := kindOf(r)
	var b CodeBuilder
	name := identifier(r.Name)

	if r.IsSingleMethod() {
		method := r.Methods[0]
		b.Lines(g.functionDoc(r, kind, method, true))
		b.Block("export const "+name+" = "+g.signature(r, kind, method), "};", func() {
			kind.body(g, &b, r, method)
		})
	} else {
		b.Lines(g.objectDoc(r, kind))
		b.Block("export const "+name+" = {", "};", func() {
			for i, method := range r.Methods {
				if i > 0 {
					b.Blank()
				}
				b.Lines(g.functionDoc(r, kind, method, false))
				closing := "},"
				if i == len(r.Methods)-1 {
					closing = "}"
				}
				b.Block(strings.ToLower(method)+": "+g.signature(r, kind, method), closing, func() {
					kind.body(g, &b, r, method)
				})
			}
		})
	}
	return b.String(), kind.types, kind.funcs
}

// sortedParams returns the parameters the client sends for method,
// required ones first. An EventSource can only GET, so it sends no body.
func sortedParams(r *ir.RouteNode, method string) []ir.Field {
	if r.Streaming != nil && r.Streaming.ClientType == ir.StreamEventSource {
		method = "GET"
	}
	params := r.ClientParameters(method)
	slices.SortStableFunc(params, func(a, b ir.Field) int {
		switch {
		case a.IsOptional() == b.IsOptional():
			return 0
		case a.IsOptional():
			return 1
		}
		return -1
	})
	return params
}

func (g *Generator) signature(r *ir.RouteNode, kind clientKind, method string) string {
	var parts []string
	// A required callbacks parameter follows the client parameters, and
	// TypeScript forbids required parameters after optional ones.
	callbacks := len(kind.extra) > 1
	for _, p := range sortedParams(r, method) {
		name, typ := identifier(p.Name), g.Renderer.Render(p.Annotation, true)
		switch {
		case p.IsOptional() && callbacks:
			typ += " | undefined"
		case p.IsOptional():
			name += "?"
		}
		parts = append(parts, name+": "+typ)
	}
	parts = append(parts, kind.extra...)

	sig := "(" + strings.Join(parts, ", ") + "): " + kind.result(g, r) + " => {"
	if kind.async {
		return "async " + sig
	}
	return sig
}

func (g *Generator) fetchResult(r *ir.RouteNode) string {
	inner := "any"
	if r.ReturnType != nil {
		inner = g.Renderer.Render(*r.ReturnType, true)
	}
	return "Promise<" + apiResultType + "<" + inner + ">>"
}

// functionDoc documents a single-method function or one method of a
// grouped object.
func (g *Generator) functionDoc(r *ir.RouteNode, kind clientKind, method string, single bool) string {
	var parts []string
	switch {
	case !single:
		desc := strings.ToUpper(method) + " operation"
		if kind.label != "" {
			desc = strings.ToUpper(method) + " " + kind.label + " operation"
		}
		parts = append(parts, desc)
	case r.Doc != "" && kind.label != "":
		parts = append(parts, r.Doc+" ("+kind.label+")")
	case r.Doc != "":
		parts = append(parts, r.Doc)
	case kind.label != "":
		parts = append(parts, strings.ToUpper(method)+" "+r.Path+" - "+kind.label)
	default:
		parts = append(parts, strings.ToUpper(method)+" "+r.Path)
	}

	params := paramDocs(sortedParams(r, method))
	if len(params) > 0 || kind.label != "" {
		parts = append(parts, "")
		parts = append(parts, params...)
		parts = append(parts, kind.extraDocs...)
	}

	if single {
		parts = appendSection(parts, documentedOnly(r))
		parts = appendSection(parts, securityDocs(r))
		parts = appendSection(parts, streamTypeDoc(r))
	}
	return wrapJSDoc(parts)
}

// objectDoc documents a grouped multi-method object.
func (g *Generator) objectDoc(r *ir.RouteNode, kind clientKind) string {
	var desc string
	switch {
	case r.Doc != "" && kind.label != "":
		desc = r.Doc + " (" + kind.label + ")"
	case r.Doc != "":
		desc = r.Doc
	case kind.label != "":
		desc = r.Path + " - " + strings.Join(r.Methods, ", ") + " " + kind.label + " operations"
	default:
		desc = r.Path + " - " + strings.Join(r.Methods, ", ") + " operations"
	}
	parts := []string{desc}
	parts = appendSection(parts, documentedOnly(r))
	parts = appendSection(parts, securityDocs(r))
	parts = appendSection(parts, streamTypeDoc(r))
	return wrapJSDoc(parts)
}

func streamTypeDoc(r *ir.RouteNode) []string {
	if !r.IsStreaming() || r.Streaming.MediaType == "" {
		return nil
	}
	return []string{"**Stream Type:** " + r.Streaming.MediaType}
}

func appendSection(parts, section []string) []string {
	if len(section) == 0 {
		return parts
	}
	return append(append(parts, ""), section...)
}

// urlLines declares url: the base URL and path template, then the query
// string.
func (g *Generator) urlLines(b *CodeBuilder, r *ir.RouteNode, method string) {
	var subs []string
	for _, p := range r.ParametersOfType(ir.ParamPath) {
		expr := "${" + identifier(p.Name) + "}"
		subs = append(subs, "{"+p.Name+"...}", expr, "{"+p.Name+"}", expr)
	}
	// One pass, so a substituted ${name} is never matched again.
	path := strings.NewReplacer(subs...).Replace(strings.TrimSuffix(r.Path, "{$}"))
	b.Line("let url = `${" + getBaseURLFn + "()}" + path + "`;")

	var query []ir.Field
	for _, p := range r.ClientParameters(method) {
		if p.Constraints.ParameterType == ir.ParamQuery {
			query = append(query, p)
		}
	}
	if len(query) == 0 {
		return
	}

	b.Blank()
	b.Line("const searchParams = new URLSearchParams();")
	for _, p := range query {
		ident := identifier(p.Name)
		set := func() {
			if isArray(p.Annotation) {
				b.Block("for (const value of "+ident+") {", "}", func() {
					b.Line("searchParams.append('" + p.Name + "', String(value));")
				})
				return
			}
			b.Line("searchParams.set('" + p.Name + "', String(" + ident + "));")
		}
		if p.IsOptional() {
			b.Block("if ("+ident+" !== undefined) {", "}", set)
		} else {
			set()
		}
	}
	b.Block("if (searchParams.toString()) {", "}", func() {
		b.Line("url += `?${searchParams.toString()}`;")
	})
}

func isArray(ann ir.FieldAnnotation) bool {
	if ann.IsOptional() && len(ann.Args) == 1 {
		ann = ann.Args[0]
	}
	return ann.Container == ir.ContainerArray
}

func (g *Generator) fetchBody(b *CodeBuilder, r *ir.RouteNode, method string) {
	g.urlLines(b, r, method)
	requestOptions(b, r, method)

	b.Blank()
	b.Line("const response = await fetch(url, requestOptions);")
	b.Line("return " + handleResponseFn + "(response);")
}

// requestOptions declares requestOptions, encoding the body, form and file
// parameters method carries as JSON or FormData.
func requestOptions(b *CodeBuilder, r *ir.RouteNode, method string) {
	var body, form, file []ir.Field
	for _, p := range r.ClientParameters(method) {
		switch p.Constraints.ParameterType {
		case ir.ParamBody:
			body = append(body, p)
		case ir.ParamForm:
			form = append(form, p)
		case ir.ParamFile:
			file = append(file, p)
		}
	}
	multipart := len(form) > 0 || len(file) > 0
	jsonBody := len(body) > 0 && !multipart

	b.Blank()
	b.Block("const requestOptions: RequestInit = {", "};", func() {
		b.Line("method: '" + strings.ToUpper(method) + "',")
		if jsonBody {
			b.Block("headers: {", "},", func() {
				b.Line("'Content-Type': 'application/json',")
				b.Line("...options?.headers")
			})
		} else {
			// FormData sets its own Content-Type.
			b.Line("headers: options?.headers,")
		}
		switch {
		case jsonBody:
			jsonLines(b, body)
		case multipart:
			formLines(b, form, file, body)
		}
		b.Line("...options")
	})
}

// jsonLines sends a single body parameter as the whole body, and merges
// several into one object keyed by their names.
func jsonLines(b *CodeBuilder, body []ir.Field) {
	if len(body) == 1 {
		b.Line("body: JSON.stringify(" + identifier(body[0].Name) + "),")
		return
	}
	b.Block("body: JSON.stringify({", "}),", func() {
		for _, p := range body {
			ident := identifier(p.Name)
			if ident == p.Name {
				b.Line(ident + ",")
			} else {
				b.Line(propertyName(p.Name) + ": " + ident + ",")
			}
		}
	})
}

func formLines(b *CodeBuilder, form, file, body []ir.Field) {
	b.Block("body: (() => {", "})(),", func() {
		b.Line("const formData = new FormData();")
		appendField := func(p ir.Field, value string) {
			line := "formData.append('" + p.Name + "', " + value + ");"
			if p.IsOptional() {
				b.Block("if ("+identifier(p.Name)+" !== undefined) {", "}", func() { b.Line(line) })
				return
			}
			b.Line(line)
		}
		for _, p := range form {
			appendField(p, "String("+identifier(p.Name)+")")
		}
		for _, p := range file {
			appendField(p, identifier(p.Name))
		}
		for _, p := range body {
			appendField(p, "JSON.stringify("+identifier(p.Name)+")")
		}
		b.Line("return formData;")
	})
}

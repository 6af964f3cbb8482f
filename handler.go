package fluidgen

import (
	"context"
	"net/http"
	"reflect"
	"strings"
)

// SecurityRef attaches a registered security scheme to a route.
type SecurityRef struct {
	Scheme string
	Scopes []string
}

// EndpointInfo is the static description of a handler that the generator reads.
type EndpointInfo struct {
	Methods []string

	// Name overrides the client function name. Empty means it is derived from
	// the endpoint function.
	Name string
	Doc  string

	// Func is the user endpoint function.
	Func any

	Request  reflect.Type
	Response reflect.Type

	// ResponseClass is the declared response type, when it differs from
	// Response (e.g. Response is an interface).
	ResponseClass reflect.Type

	Security []SecurityRef
}

// Endpoint is a handler registered on an App.
// It is exported so users can pass it to Handle, but sealed so they cannot implement it.
type Endpoint interface {
	Info() EndpointInfo
	serve(a *App, route *Route, w http.ResponseWriter, r *http.Request)
}

// Handler implements Endpoint for a specific Request/Response pair.
//
// The request type is usually a struct whose tags place each field:
//
//	type GetUserRequest struct {
//	    ID      int64  `path:"id"`
//	    Expand  bool   `query:"expand" default:"false"`
//	    Token   string `security:"bearer"`
//	    DB      *sql.DB `inject:""`
//	}
type Handler[Req any, Res any] struct {
	fn             func(context.Context, Req) (Res, error)
	info           EndpointInfo
	skipValidation bool
}

// NewHandler creates a new handler from a generic function.
// Default HTTP Method is "POST".
func NewHandler[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Handler[Req, Res] {
	return &Handler[Req, Res]{
		fn: fn,
		info: EndpointInfo{
			Methods:  []string{http.MethodPost},
			Func:     fn,
			Request:  reflect.TypeFor[Req](),
			Response: reflect.TypeFor[Res](),
		},
	}
}

// Method sets the HTTP methods served by the handler. Several methods on one
// handler produce a grouped client object keyed by method.
func (h *Handler[Req, Res]) Method(methods ...string) *Handler[Req, Res] {
	h.info.Methods = h.info.Methods[:0]
	for _, m := range methods {
		h.info.Methods = append(h.info.Methods, strings.ToUpper(m))
	}
	return h
}

// Name sets the generated client function name.
func (h *Handler[Req, Res]) Name(name string) *Handler[Req, Res] {
	h.info.Name = name
	return h
}

// Doc sets the route documentation. Without it the endpoint function's doc
// comment is used.
func (h *Handler[Req, Res]) Doc(doc string) *Handler[Req, Res] {
	h.info.Doc = doc
	return h
}

// Security requires a registered scheme for every call to the route.
func (h *Handler[Req, Res]) Security(scheme string, scopes ...string) *Handler[Req, Res] {
	h.info.Security = append(h.info.Security, SecurityRef{Scheme: scheme, Scopes: scopes})
	return h
}

// ResponseClass declares the concrete response type. Use it when Res is an
// interface so the generator can still type the client.
func (h *Handler[Req, Res]) ResponseClass(t reflect.Type) *Handler[Req, Res] {
	h.info.ResponseClass = t
	return h
}

// WithSkipValidation disables request validation for this handler.
func (h *Handler[Req, Res]) WithSkipValidation() *Handler[Req, Res] {
	h.skipValidation = true
	return h
}

// Info implements Endpoint.
func (h *Handler[Req, Res]) Info() EndpointInfo {
	info := h.info
	info.Methods = append([]string(nil), h.info.Methods...)
	info.Security = append([]SecurityRef(nil), h.info.Security...)
	return info
}

func (h *Handler[Req, Res]) serve(a *App, route *Route, w http.ResponseWriter, r *http.Request) {
	dep, err := route.Dependant()
	if err != nil {
		a.writeError(w, Errorf(CodeInternal, "route %s: %v", route.Path, err))
		return
	}

	var req Req
	var tasks *BackgroundTasks
	if v, bg, err := a.decodeRequest(r, h.info.Request, dep, !h.skipValidation); err != nil {
		a.writeError(w, a.transformError(err))
		return
	} else if v.IsValid() {
		req = v.Interface().(Req)
		tasks = bg
	}

	res, err := h.fn(r.Context(), req)
	if err != nil {
		a.writeError(w, a.transformError(err))
		return
	}

	a.writeResult(w, r, route.Path, res)

	if tasks != nil {
		tasks.run(context.WithoutCancel(r.Context()))
	}
}

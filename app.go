package fluidgen

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// App is the route table. Routes are registered with Handle and served
// through Handler; the generator reads the same table through Routes.
type App struct {
	mu                 sync.RWMutex
	routes             []*Route
	schemes            map[string]SecurityScheme
	providers          []reflect.Value
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	logger             *zap.Logger
	maxRequestBodySize int64
	middleware         []func(http.Handler) http.Handler
}

// Route is one registered path and its endpoint.
type Route struct {
	Path string
	EndpointInfo

	endpoint  Endpoint
	dependant *Dependant
	depErr    error
}

// Dependant returns the resolved parameter structure of the route's request type.
func (r *Route) Dependant() (*Dependant, error) {
	return r.dependant, r.depErr
}

func NewApp() *App {
	return &App{
		schemes:            make(map[string]SecurityScheme),
		logger:             zap.L(),
		maxRequestBodySize: 1 << 20, // 1MB default
	}
}

// WithLogger sets the logger used while serving.
// If not set, zap.L() is used.
func (a *App) WithLogger(logger *zap.Logger) *App {
	a.logger = logger
	return a
}

// WithErrorTransformer adds a custom error transformer.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors hides internal error messages from clients.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithMaxRequestBodySize sets the maximum request body size. 0 means no limit.
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.maxRequestBodySize = size
	return a
}

// SecurityScheme registers a named security scheme that request structs and
// handlers can reference.
func (a *App) SecurityScheme(name string, scheme SecurityScheme) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.schemes[name] = scheme
	return a
}

// Scheme returns a registered security scheme.
func (a *App) Scheme(name string) (SecurityScheme, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.schemes[name]
	return s, ok
}

// Provide registers a value for injection into request fields tagged
// `inject:""`. A field receives the first provided value assignable to it.
func (a *App) Provide(v any) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers = append(a.providers, reflect.ValueOf(v))
	return a
}

// Handle registers an endpoint at path. Path variables use the {name}
// syntax of net/http patterns. Registering a method that is already served at
// the same path replaces it and logs a warning.
func (a *App) Handle(path string, ep Endpoint) *App {
	info := ep.Info()
	dep, err := ResolveDependant(info.Request)
	route := &Route{
		Path:         path,
		EndpointInfo: info,
		endpoint:     ep,
		dependant:    dep,
		depErr:       err,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.routes[:0]
	for _, existing := range a.routes {
		if existing.Path == path {
			existing.Methods = slices.DeleteFunc(existing.Methods, func(m string) bool {
				if slices.Contains(info.Methods, m) {
					a.logger.Warn("duplicate route registration",
						zap.String("path", path),
						zap.String("method", m))
					return true
				}
				return false
			})
			if len(existing.Methods) == 0 {
				continue
			}
		}
		kept = append(kept, existing)
	}
	a.routes = append(kept, route)
	return a
}

// Routes returns the registered routes in registration order.
func (a *App) Routes() []*Route {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.routes)
}

// Use wraps the served handler in mw. The first middleware given runs first.
func (a *App) Use(mw ...func(http.Handler) http.Handler) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middleware = append(a.middleware, mw...)
	return a
}

// Handler returns an http.Handler serving every registered route.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range a.Routes() {
		for _, m := range route.Methods {
			mux.HandleFunc(m+" "+route.Path, func(w http.ResponseWriter, r *http.Request) {
				a.serveRoute(route, w, r)
			})
		}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var h http.Handler = mux
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}
	return h
}

func (a *App) serveRoute(route *Route, w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("PANIC recovered",
				zap.Any("panic", rec),
				zap.String("stack", string(debug.Stack())))
			a.writeError(w, NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)))
		}
	}()
	route.endpoint.serve(a, route, w, r)
}

func (a *App) transformError(err error) *Error {
	var svcErr *Error
	if a.errorTransformer != nil {
		svcErr = a.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	if a.maskInternalErrors && svcErr.Code == CodeInternal {
		svcErr = NewError(CodeInternal, "internal server error")
	}
	return svcErr
}

func (a *App) writeError(w http.ResponseWriter, svcErr *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.Code.HTTPStatus())
	if err := json.NewEncoder(w).Encode(svcErr); err != nil {
		a.logger.Error("failed to encode error response",
			zap.String("code", string(svcErr.Code)),
			zap.String("message", svcErr.Message),
			zap.Error(err))
	}
}

func (a *App) writeResult(w http.ResponseWriter, r *http.Request, route string, res any) {
	if rv := reflect.ValueOf(res); rv.Kind() == reflect.Pointer && rv.IsNil() {
		res = nil
	}
	switch v := res.(type) {
	case eventStreamer:
		a.writeEventStream(w, r, route, v)
	case streamingResponder:
		a.writeStreamingResponse(w, route, v.streamingResponse())
	default:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			a.logger.Error("failed to encode response", zap.String("route", route), zap.Error(err))
		}
	}
}

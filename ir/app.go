package ir

// App is everything one generation run knows about: discovered models and
// introspected routes. It is built once per run and discarded afterwards.
type App struct {
	Models []*ModelNode
	Routes []*RouteNode

	// Warnings collects non-fatal problems from introspection.
	Warnings []Warning
}

// FindModel returns the model with the given name, or nil.
func (a *App) FindModel(name string) *ModelNode {
	for _, m := range a.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// HasStreamingRoutes reports whether any route streams.
func (a *App) HasStreamingRoutes() bool {
	for _, r := range a.Routes {
		if r.IsStreaming() {
			return true
		}
	}
	return false
}

// AddWarning appends a warning.
func (a *App) AddWarning(w Warning) {
	a.Warnings = append(a.Warnings, w)
}

// Warning represents a non-fatal issue encountered during a run.
type Warning struct {
	// Code is a machine-readable identifier such as "ROUTE_SKIPPED".
	Code string `json:"code"`

	Message string `json:"message"`

	// Source names the route, model or file that triggered the warning.
	Source string `json:"source,omitempty"`
}

// Warning codes.
const (
	WarnRouteSkipped    = "ROUTE_SKIPPED"
	WarnModelSkipped    = "MODEL_SKIPPED"
	WarnUnsupportedType = "UNSUPPORTED_TYPE"
	WarnPathResolution  = "PATH_RESOLUTION"
	WarnWriteFailed     = "WRITE_FAILED"
	WarnDeleteFailed    = "DELETE_FAILED"
	WarnManifest        = "MANIFEST"
	WarnConfig          = "CONFIG"
)

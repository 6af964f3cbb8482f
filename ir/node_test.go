package ir

import (
	"reflect"
	"testing"
)

func param(name string, pt ParameterType, ann FieldAnnotation) Field {
	return Field{Name: name, Annotation: ann, Constraints: FieldConstraints{ParameterType: pt}}
}

func TestRouteNode_ClientParameters(t *testing.T) {
	route := &RouteNode{
		Name:    "items",
		Methods: []string{"GET", "POST"},
		Path:    "/items/{id}",
		Parameters: []Field{
			param("id", ParamPath, Base(BaseNumber)),
			param("q", ParamQuery, Base(BaseString)),
			param("item", ParamBody, Custom("Item", nil)),
			param("X-Token", ParamHeader, Base(BaseString)),
			param("db", ParamDependency, Base(BaseAny)),
		},
	}

	names := func(fs []Field) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}

	if got, want := names(route.ClientParameters("GET")), []string{"id", "q"}; !reflect.DeepEqual(got, want) {
		t.Errorf("GET params = %v, want %v", got, want)
	}
	if got, want := names(route.ClientParameters("post")), []string{"id", "q", "item"}; !reflect.DeepEqual(got, want) {
		t.Errorf("POST params = %v, want %v", got, want)
	}
	if got, want := names(route.DocumentedParameters()), []string{"X-Token"}; !reflect.DeepEqual(got, want) {
		t.Errorf("documented params = %v, want %v", got, want)
	}
	if route.IsSingleMethod() {
		t.Error("two methods should not be single-method")
	}
}

func TestRouteNode_ReferencedTypes(t *testing.T) {
	ret := Array(Custom("Order", nil))
	route := &RouteNode{
		Parameters: []Field{param("user", ParamBody, Custom("User", nil))},
		ReturnType: &ret,
	}
	got := route.ReferencedTypes()
	want := []string{"Order", "User"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReferencedTypes() = %v, want %v", got, want)
	}
}

func TestModelNode_ReferencedTypesIncludesInheritance(t *testing.T) {
	m := &ModelNode{
		Name:        "Admin",
		Fields:      []Field{{Name: "perms", Annotation: Array(Custom("Permission", nil))}},
		Inheritance: []string{"User"},
	}
	got := m.ReferencedTypes()
	want := []string{"Permission", "User"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReferencedTypes() = %v, want %v", got, want)
	}
}

func TestApp_HasStreamingRoutes(t *testing.T) {
	app := &App{Routes: []*RouteNode{{Name: "plain"}}}
	if app.HasStreamingRoutes() {
		t.Error("plain routes should not stream")
	}
	app.Routes = append(app.Routes, &RouteNode{
		Name:      "events",
		Streaming: &Streaming{ClientType: StreamEventSource, MediaType: "text/event-stream"},
	})
	if !app.HasStreamingRoutes() {
		t.Error("expected streaming route to be detected")
	}
	if app.FindModel("missing") != nil {
		t.Error("FindModel should return nil for unknown names")
	}
}

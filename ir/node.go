package ir

import (
	"net/http"
	"strings"
)

// ModuleLocation identifies where a node was defined.
// It is never mutated after creation; path math is done by the resolver.
type ModuleLocation struct {
	// ModulePath is the Go import path of the defining package.
	ModulePath string

	// FilePath is the absolute, symlink-resolved source file.
	FilePath string

	External bool
}

// ModelNode is a struct or enum that becomes a TypeScript declaration.
type ModelNode struct {
	Name     string
	Fields   []Field
	Location ModuleLocation
	Doc      string

	// Inheritance lists embedded base type names.
	Inheritance []string

	// Bases holds the custom annotation of each Inheritance entry, in the
	// same order, so the discoverer can follow class references.
	Bases []FieldAnnotation

	// IsEnum marks a named basic type with declared constants. Each field
	// is one member; its Default is the member value.
	IsEnum bool
}

// ReferencedTypes returns the custom types reachable through one level of
// fields plus the inheritance list. The transitive closure is computed by
// the model discoverer, not here.
func (m *ModelNode) ReferencedTypes() []string {
	set := make(map[string]struct{})
	for _, f := range m.Fields {
		f.Annotation.collectReferenced(set)
	}
	for _, base := range m.Inheritance {
		set[base] = struct{}{}
	}
	return sortedKeys(set)
}

// SecurityRequirement describes one auth scheme a route depends on.
type SecurityRequirement struct {
	SchemeName  string
	SchemeType  string // "oauth2", "apiKey", "http", "openIdConnect"
	Description string
	Scopes      []string

	// Location and ParameterName are set for apiKey schemes.
	Location      string
	ParameterName string
}

// StreamingClientType is the client call pattern for a streaming route.
type StreamingClientType string

const (
	StreamNone         StreamingClientType = ""
	StreamEventSource  StreamingClientType = "event-stream"
	StreamReadable     StreamingClientType = "readable-stream"
	StreamFileDownload StreamingClientType = "file-download"
	StreamText         StreamingClientType = "text-stream"
)

// Streaming is the classification result for a streaming route.
type Streaming struct {
	ClientType StreamingClientType
	MediaType  string
}

// RouteNode is one registered path and its HTTP methods.
type RouteNode struct {
	Name       string
	Methods    []string
	Path       string
	Parameters []Field
	Location   ModuleLocation
	ReturnType *FieldAnnotation
	Doc        string
	Security   []SecurityRequirement

	// Streaming is nil for plain request/response routes.
	Streaming *Streaming
}

// IsSingleMethod reports whether the route serves exactly one verb.
func (r *RouteNode) IsSingleMethod() bool {
	return len(r.Methods) == 1
}

// IsStreaming reports whether the route was classified as streaming.
func (r *RouteNode) IsStreaming() bool {
	return r.Streaming != nil && r.Streaming.ClientType != StreamNone
}

// ReferencedTypes returns the custom types used by parameters and the
// return type.
func (r *RouteNode) ReferencedTypes() []string {
	set := make(map[string]struct{})
	for _, p := range r.Parameters {
		p.Annotation.collectReferenced(set)
	}
	if r.ReturnType != nil {
		r.ReturnType.collectReferenced(set)
	}
	return sortedKeys(set)
}

// RequestParameters returns the parameters sent by the client for any method.
func (r *RouteNode) RequestParameters() []Field {
	var out []Field
	for _, p := range r.Parameters {
		if p.Constraints.ParameterType.IncludeInRequest() {
			out = append(out, p)
		}
	}
	return out
}

// ClientParameters returns the parameters the client sends for method.
// Methods without a conventional body only carry path and query values.
func (r *RouteNode) ClientParameters(method string) []Field {
	bodyless := !MethodHasBody(method)
	var out []Field
	for _, p := range r.RequestParameters() {
		pt := p.Constraints.ParameterType
		if bodyless && pt != ParamPath && pt != ParamQuery {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParametersOfType returns all parameters with the given placement.
func (r *RouteNode) ParametersOfType(pt ParameterType) []Field {
	var out []Field
	for _, p := range r.Parameters {
		if p.Constraints.ParameterType == pt {
			out = append(out, p)
		}
	}
	return out
}

// DocumentedParameters returns header, cookie and security parameters that
// are documented but not sent.
func (r *RouteNode) DocumentedParameters() []Field {
	var out []Field
	for _, p := range r.Parameters {
		pt := p.Constraints.ParameterType
		if pt.Documented() && !pt.IncludeInRequest() {
			out = append(out, p)
		}
	}
	return out
}

// MethodHasBody reports whether requests with this method carry a body.
func MethodHasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

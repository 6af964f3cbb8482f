package ir

// ParameterType records where a route parameter travels in an HTTP request.
type ParameterType string

const (
	// Sent by the generated client.
	ParamPath  ParameterType = "path"
	ParamQuery ParameterType = "query"
	ParamBody  ParameterType = "body"
	ParamForm  ParameterType = "form"
	ParamFile  ParameterType = "file"

	// Documented in JSDoc but not sent.
	ParamHeader   ParameterType = "header"
	ParamCookie   ParameterType = "cookie"
	ParamSecurity ParameterType = "security"

	// Server side only.
	ParamDependency ParameterType = "dependency"
	ParamRequest    ParameterType = "request"
	ParamBackground ParameterType = "background"
)

// IncludeInRequest reports whether parameters of this kind are sent by the
// generated client.
func (p ParameterType) IncludeInRequest() bool {
	switch p {
	case ParamPath, ParamQuery, ParamBody, ParamForm, ParamFile:
		return true
	}
	return false
}

// Documented reports whether parameters of this kind appear in generated
// documentation. This is a superset of IncludeInRequest.
func (p ParameterType) Documented() bool {
	switch p {
	case ParamHeader, ParamCookie, ParamSecurity:
		return true
	}
	return p.IncludeInRequest()
}

// FieldConstraints carries placement and validation metadata.
type FieldConstraints struct {
	ParameterType ParameterType

	// Annotation names the tag that introduced the parameter
	// ("path", "query", "json", "form", "file", ...).
	Annotation string

	MinValue  *float64
	MaxValue  *float64
	MinLength *int
	MaxLength *int
	Pattern   string
	MediaType string
	Alias     string

	Deprecated bool

	// Custom holds anything else, e.g. "min_exclusive" for gt bounds.
	Custom map[string]any
}

// SetCustom stores a key in the custom bag, allocating it on first use.
func (c *FieldConstraints) SetCustom(key string, value any) {
	if c.Custom == nil {
		c.Custom = make(map[string]any)
	}
	c.Custom[key] = value
}

// Field is used for both model fields and route parameters.
type Field struct {
	Name        string
	Annotation  FieldAnnotation
	Default     any
	Description string
	Constraints FieldConstraints
}

// IsOptional is true when the annotation is optional or the field carries a
// non-nil default.
func (f Field) IsOptional() bool {
	return f.Annotation.IsOptional() || f.Default != nil
}

// IncludeInRequest reports whether the field is sent by the generated client.
// Model fields have no parameter type and are always included.
func (f Field) IncludeInRequest() bool {
	if f.Constraints.ParameterType == "" {
		return true
	}
	return f.Constraints.ParameterType.IncludeInRequest()
}

// Documented reports whether the field appears in generated documentation.
func (f Field) Documented() bool {
	if f.Constraints.ParameterType == "" {
		return true
	}
	return f.Constraints.ParameterType.Documented()
}

// ReferencedTypes returns custom type names used by the field.
func (f Field) ReferencedTypes() []string {
	return f.Annotation.ReferencedTypes()
}

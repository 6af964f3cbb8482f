package fluidgen

import (
	"net/http"
	"strings"
)

// Security scheme types.
const (
	SchemeOAuth2        = "oauth2"
	SchemeAPIKey        = "apiKey"
	SchemeHTTP          = "http"
	SchemeOpenIDConnect = "openIdConnect"
)

// SecurityScheme describes how a route authenticates callers. Schemes are
// registered on the App by name and referenced from request structs with a
// `security:"name:scope,scope"` tag.
type SecurityScheme struct {
	Type        string
	Description string

	// In and Name locate the key for apiKey schemes ("header", "query" or "cookie").
	In   string
	Name string

	// Scheme is the HTTP auth scheme for http schemes, e.g. "bearer".
	Scheme string

	// Scopes maps OAuth2 scope names to descriptions.
	Scopes map[string]string

	// URL is the token URL for OAuth2 or the discovery URL for OpenID Connect.
	URL string
}

// OAuth2 returns a password-flow OAuth2 scheme.
func OAuth2(tokenURL string, scopes map[string]string) SecurityScheme {
	return SecurityScheme{Type: SchemeOAuth2, URL: tokenURL, Scopes: scopes}
}

// APIKey returns a scheme that reads a key from a header, query parameter or cookie.
func APIKey(in, name string) SecurityScheme {
	return SecurityScheme{Type: SchemeAPIKey, In: in, Name: name}
}

// HTTPBearer returns an HTTP bearer token scheme.
func HTTPBearer() SecurityScheme {
	return SecurityScheme{Type: SchemeHTTP, Scheme: "bearer"}
}

// OpenIDConnect returns an OpenID Connect scheme.
func OpenIDConnect(discoveryURL string) SecurityScheme {
	return SecurityScheme{Type: SchemeOpenIDConnect, URL: discoveryURL}
}

// WithDescription returns a copy of s with a description.
func (s SecurityScheme) WithDescription(desc string) SecurityScheme {
	s.Description = desc
	return s
}

// Credential extracts the caller's credential from r. The empty string means
// none was supplied.
func (s SecurityScheme) Credential(r *http.Request) string {
	if s.Type == SchemeAPIKey {
		switch s.In {
		case "query":
			return r.URL.Query().Get(s.Name)
		case "cookie":
			if c, err := r.Cookie(s.Name); err == nil {
				return c.Value
			}
			return ""
		default:
			return r.Header.Get(s.Name)
		}
	}
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok {
		return ""
	}
	if s.Type == SchemeHTTP && s.Scheme != "" && !strings.EqualFold(scheme, s.Scheme) {
		return ""
	}
	if s.Type != SchemeHTTP && !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return token
}

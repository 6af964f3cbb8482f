// Package middleware holds http.Handler wrappers for a fluidgen.App.
//
// A client generated for a "separate" environment calls the API from a
// different origin than the page, so the App usually needs CORS:
//
//	app.Use(middleware.Logging(log), middleware.CORS(&middleware.CORSConfig{
//		AllowOrigins: []string{"https://app.example.com"},
//	}))
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures CORS. Zero fields take the defaults noted below.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to call the API. "*" allows any.
	// Default: ["*"]
	AllowOrigins []string

	// Default: ["GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"]
	AllowMethods []string

	// Default: ["Content-Type", "Authorization"]
	AllowHeaders []string

	ExposeHeaders []string

	// AllowCredentials lets the browser send cookies, as generated clients
	// do when called with credentials: "include".
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero leaves it unset.
	MaxAge int
}

var (
	defaultMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Content-Type", "Authorization"}
)

// CORS returns middleware that answers preflight requests and sets the
// Access-Control headers. A nil cfg allows every origin.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}
	origins := orDefault(cfg.AllowOrigins, []string{"*"})
	wildcard := slices.Contains(origins, "*")
	methods := strings.Join(orDefault(cfg.AllowMethods, defaultMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowHeaders, defaultHeaders), ", ")
	exposed := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case origin == "":
				if wildcard {
					h.Set("Access-Control-Allow-Origin", "*")
				}
			case wildcard && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case wildcard || slices.Contains(origins, origin):
				// Credentialed requests may not use "*", so echo the origin.
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

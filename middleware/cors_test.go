package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantMethods string
		wantMaxAge  string
	}{
		{
			name:       "nil config allows any origin",
			method:     "GET",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:        "preflight",
			method:      "OPTIONS",
			origin:      "http://localhost:3000",
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		},
		{
			name:       "listed origin is echoed",
			cfg:        &CORSConfig{AllowOrigins: []string{"https://app.example.com"}},
			method:     "POST",
			origin:     "https://app.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "https://app.example.com",
		},
		{
			name:       "unlisted origin gets no header",
			cfg:        &CORSConfig{AllowOrigins: []string{"https://app.example.com"}},
			method:     "POST",
			origin:     "https://evil.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard with credentials echoes origin",
			cfg:        &CORSConfig{AllowCredentials: true},
			method:     "GET",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:3000",
			wantCreds:  "true",
		},
		{
			name:        "max age and custom methods",
			cfg:         &CORSConfig{AllowMethods: []string{"GET"}, MaxAge: 600},
			method:      "OPTIONS",
			origin:      "http://localhost:3000",
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantMethods: "GET",
			wantMaxAge:  "600",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/items", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			checks := map[string]string{
				"Access-Control-Allow-Origin":      tt.wantOrigin,
				"Access-Control-Allow-Credentials": tt.wantCreds,
				"Access-Control-Allow-Methods":     tt.wantMethods,
				"Access-Control-Max-Age":           tt.wantMaxAge,
			}
			for header, want := range checks {
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/middleware"
)

type pingRequest struct {
	Fail bool `query:"fail"`
}

type pingResponse struct {
	OK bool `json:"ok"`
}

func TestLogging_ThroughApp(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fluidgen.NewApp().WithLogger(zap.NewNop())
	app.Handle("/ping", fluidgen.NewHandler(func(ctx context.Context, req pingRequest) (pingResponse, error) {
		if req.Fail {
			return pingResponse{}, fluidgen.NewError(fluidgen.CodeInternal, "boom")
		}
		return pingResponse{OK: true}, nil
	}).Method("GET"))
	app.Use(middleware.Logging(zap.New(core)), middleware.CORS(nil))

	h := app.Handler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/ping", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/ping?fail=true", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != "request completed" || entries[0].ContextMap()["status"] != int64(200) {
		t.Errorf("unexpected first entry %v %v", entries[0].Message, entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["status"] != int64(http.StatusInternalServerError) {
		t.Errorf("unexpected second entry %v %v", entries[1].Level, entries[1].ContextMap())
	}
	if entries[1].ContextMap()["path"] != "/ping" {
		t.Errorf("path = %v", entries[1].ContextMap()["path"])
	}
}

func TestLogging_Preflight(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := middleware.Logging(zap.New(core))(middleware.CORS(nil)(http.NotFoundHandler()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/anything", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["status"] != int64(http.StatusNoContent) {
		t.Errorf("unexpected logs %v", logs.All())
	}
}

package httpadapter

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccessLogIncludesHandlerAnnotations(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		annotateLog(r.Context(), "strategy", "semantic")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"strategy":"semantic"`) {
		t.Fatalf("expected strategy in access log, got %s", buf.String())
	}
}

func TestAnnotateLogWithoutCarrierIsNoop(t *testing.T) {
	// Must not panic when a handler runs outside the access-log middleware.
	annotateLog(context.Background(), "strategy", "structured")
}

package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/studygroup-scheduler/internal/logging"
)

func TestRequireUserRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	called := false
	handler := RequireUser(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/sessions/x", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
	if called {
		t.Error("next handler must not run without a user header")
	}
}

func TestRequireUserResolvesPrincipal(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequireUser(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("expected a principal on the context")
			return
		}
		if principal.UserID != "alice" {
			t.Errorf("user id = %q, want alice", principal.UserID)
		}
		if !principal.IsAdmin {
			t.Error("expected admin flag from header")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/x", nil)
	req.Header.Set(userIDHeader, " alice ")
	req.Header.Set(userAdminHeader, "TRUE")

	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequestLoggerAttachesContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logging.FromContext(r.Context()) == nil {
			t.Error("expected a request-scoped logger on the context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/groups/g1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	output := buf.String()
	if !strings.Contains(output, "request started") || !strings.Contains(output, "request completed") {
		t.Errorf("missing request lifecycle logs: %s", output)
	}
	if !strings.Contains(output, "/groups/g1") {
		t.Errorf("missing request path in logs: %s", output)
	}
}

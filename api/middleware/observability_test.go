package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func bufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("info"), Output: buf})
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	buf := &bytes.Buffer{}
	r := chi.NewRouter()
	r.Use(Logging(bufferedLogger(buf)))
	r.Get("/api/v1/properties/{propertyID}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"route":"/api/v1/properties/{propertyID}"`, `"status":200`, `"bytes":5`, `"level":"info"`, `"message":"request.complete"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log=%s", want, out)
		}
	}
}

func TestLoggingWarnsOnServerErrorAndSkipsHealth(t *testing.T) {
	buf := &bytes.Buffer{}
	r := chi.NewRouter()
	r.Use(Logging(bufferedLogger(buf)))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if buf.Len() != 0 {
		t.Fatalf("health checks should not be logged: %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), `"status":502`) {
		t.Fatalf("expected warn entry for 502: %s", buf.String())
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Recoverer(bufferedLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounting/entries", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
	if strings.Contains(payload.Error.Message, "ledger exploded") {
		t.Fatalf("panic value leaked to client: %s", payload.Error.Message)
	}
	if !strings.Contains(buf.String(), `"panic":"ledger exploded"`) || !strings.Contains(buf.String(), `"path":"/api/v1/accounting/entries"`) {
		t.Fatalf("expected panic fields in log: %s", buf.String())
	}
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestIDKeepsSafeIDsAndReplacesOthers(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	cases := []struct {
		inbound string
		keep    bool
	}{
		{"req-123_abc.9", true},
		{"", false},
		{"has space", false},
		{"line\nbreak", false},
		{strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.inbound != "" {
			req.Header[requestIDHeader] = []string{tc.inbound}
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if tc.keep && got != tc.inbound {
			t.Fatalf("expected %q echoed, got %q", tc.inbound, got)
		}
		if !tc.keep && (got == tc.inbound || got == "") {
			t.Fatalf("expected %q replaced, got %q", tc.inbound, got)
		}
	}
}

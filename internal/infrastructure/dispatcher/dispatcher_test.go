package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/metrics"
)

func newTestDispatcher(t *testing.T, h http.HandlerFunc, token string) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api/"}, func() string { return token }, zerolog.Nop())
}

func TestDispatcher_AttachesBearerCredential(t *testing.T) {
	var gotAuth, gotPath, gotRequestID string
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, "tok-123")

	var out struct {
		OK bool `json:"ok"`
	}
	if err := d.Do(context.Background(), http.MethodGet, "/orders", nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotPath != "/api/orders" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotRequestID == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if !out.OK {
		t.Fatalf("response not decoded")
	}
}

func TestDispatcher_NoCredentialDispatchesUnauthenticated(t *testing.T) {
	var sawHeader bool
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}, "")

	if err := d.Do(context.Background(), http.MethodGet, "/products", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawHeader {
		t.Fatalf("expected no Authorization header")
	}
}

func TestDispatcher_AnonymousSkipsCredential(t *testing.T) {
	var sawHeader bool
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{}`))
	}, "tok-123")

	if err := d.Do(context.Background(), http.MethodPost, "/auth/login", map[string]string{"identifier": "a"}, nil, Anonymous()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawHeader {
		t.Fatalf("anonymous call must not carry the credential")
	}
}

func TestDispatcher_NilProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := New(Config{BaseURL: srv.URL}, nil, zerolog.Nop())
	if err := d.Do(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_NormalizesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   domain.ErrorKind
		msg    string
	}{
		{http.StatusUnauthorized, `{"msg":"Bad username/email or password"}`, domain.KindUnauthorized, "Bad username/email or password"},
		{http.StatusForbidden, `{"msg":"Admins only!"}`, domain.KindUnauthorized, "Admins only!"},
		{http.StatusBadRequest, `{"msg":"Missing required field: quantity_kg"}`, domain.KindValidation, "Missing required field: quantity_kg"},
		{http.StatusUnprocessableEntity, `{"error":"quantity must be positive"}`, domain.KindValidation, "quantity must be positive"},
		{http.StatusNotFound, `not json`, domain.KindNotFound, "not found"},
		{http.StatusConflict, `{"msg":"Username already exists"}`, domain.KindUnknown, "Username already exists"},
		{http.StatusInternalServerError, ``, domain.KindUnknown, "internal server error"},
	}

	for _, tc := range cases {
		d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}, "tok")

		err := d.Do(context.Background(), http.MethodGet, "/user/profile", nil, nil)
		var de *domain.Error
		if !errors.As(err, &de) {
			t.Fatalf("status %d: expected *domain.Error, got %v", tc.status, err)
		}
		if de.Kind != tc.kind {
			t.Errorf("status %d: expected kind %s, got %s", tc.status, tc.kind, de.Kind)
		}
		if de.StatusCode != tc.status {
			t.Errorf("status %d: status code not preserved: %d", tc.status, de.StatusCode)
		}
		if de.Message != tc.msg {
			t.Errorf("status %d: expected message %q, got %q", tc.status, tc.msg, de.Message)
		}
	}
}

func TestDispatcher_NoResponseIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := New(Config{BaseURL: url}, nil, zerolog.Nop())
	err := d.Do(context.Background(), http.MethodGet, "/products", nil, nil)
	if !domain.IsKind(err, domain.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	var de *domain.Error
	if errors.As(err, &de) && de.StatusCode != 0 {
		t.Fatalf("network errors carry no status code, got %d", de.StatusCode)
	}
}

func TestDispatcher_TimeoutIsNetwork(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, zerolog.Nop())
	err := d.Do(context.Background(), http.MethodGet, "/products", nil, nil)
	if !domain.IsKind(err, domain.KindNetwork) {
		t.Fatalf("expected network error on timeout, got %v", err)
	}
}

func TestDispatcher_UndecodableBodyIsUnknown(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[not json`))
	}, "")

	var out map[string]any
	err := d.Do(context.Background(), http.MethodGet, "/products", nil, &out)
	if !domain.IsKind(err, domain.KindUnknown) {
		t.Fatalf("expected unknown error, got %v", err)
	}
}

func TestDispatcher_RecordsMetrics(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "")

	counter := metrics.RequestsTotal.WithLabelValues(http.MethodGet, "/metrics-route/{id}", "unauthorized")
	before := testutil.ToFloat64(counter)

	_ = d.Do(context.Background(), http.MethodGet, "/metrics-route/1", nil, nil, Route("/metrics-route/{id}"))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", got)
	}
}

func TestDispatcher_MarksRejectedCredential(t *testing.T) {
	unauthorized := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Token has expired"}`))
	}
	forbidden := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"msg":"Not authorized to access this resource"}`))
	}

	err := newTestDispatcher(t, unauthorized, "tok-1").Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	if !errors.Is(err, domain.ErrCredentialRejected) {
		t.Fatalf("expected rejected credential, got %v", err)
	}

	err = newTestDispatcher(t, unauthorized, "tok-1").Do(context.Background(), http.MethodPost, "/auth/login", nil, nil, Anonymous())
	if !domain.IsKind(err, domain.KindUnauthorized) || errors.Is(err, domain.ErrCredentialRejected) {
		t.Fatalf("anonymous 401 must not reject the credential, got %v", err)
	}

	err = newTestDispatcher(t, unauthorized, "").Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	if errors.Is(err, domain.ErrCredentialRejected) {
		t.Fatalf("no credential was sent, got %v", err)
	}

	err = newTestDispatcher(t, forbidden, "tok-1").Do(context.Background(), http.MethodGet, "/user/admin/data", nil, nil)
	if !domain.IsKind(err, domain.KindUnauthorized) || errors.Is(err, domain.ErrCredentialRejected) {
		t.Fatalf("403 must not reject the credential, got %v", err)
	}
}

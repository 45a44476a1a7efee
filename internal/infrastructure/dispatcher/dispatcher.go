// Package dispatcher sends every marketplace request. It attaches the current
// credential and normalizes failures into domain.Error values.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// CredentialProvider returns the credential to attach, or "" to dispatch
// unauthenticated.
type CredentialProvider func() string

// Config captures the settings for reaching the marketplace.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout. Used by tests.
	HTTPClient *http.Client
}

// Dispatcher performs JSON requests against the marketplace.
type Dispatcher struct {
	baseURL     string
	client      *http.Client
	credentials CredentialProvider
	log         zerolog.Logger
}

// New creates a Dispatcher. A nil provider dispatches every call unauthenticated.
func New(cfg Config, credentials CredentialProvider, log zerolog.Logger) *Dispatcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if credentials == nil {
		credentials = func() string { return "" }
	}
	return &Dispatcher{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      client,
		credentials: credentials,
		log:         log,
	}
}

type callOptions struct {
	anonymous bool
	route     string
}

// CallOption tweaks a single call.
type CallOption func(*callOptions)

// Anonymous suppresses the Authorization header.
func Anonymous() CallOption {
	return func(o *callOptions) { o.anonymous = true }
}

// Route sets the route template used as the metrics label, so ids in the
// path do not explode label cardinality.
func Route(tmpl string) CallOption {
	return func(o *callOptions) { o.route = tmpl }
}

// Do sends body (when non-nil) as JSON and decodes a successful response into
// out (when non-nil). Every returned error is a *domain.Error.
func (d *Dispatcher) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	o := callOptions{route: path}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	status, err := d.do(ctx, method, path, body, out, o)

	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.RequestsTotal.WithLabelValues(method, o.route, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(method, o.route).Observe(time.Since(start).Seconds())

	evt := d.log.Debug()
	if err != nil {
		evt = d.log.Warn().Err(err)
	}
	evt.Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("marketplace request")

	return err
}

func (d *Dispatcher) do(ctx context.Context, method, path string, body, out any, o callOptions) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, domain.NewError(domain.KindUnknown, "could not encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, domain.NewError(domain.KindUnknown, "could not build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	credentialSent := false
	if !o.anonymous {
		if token := d.credentials(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			credentialSent = true
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, normalizeTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := normalizeStatus(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && credentialSent {
			e.Err = domain.ErrCredentialRejected
		}
		return resp.StatusCode, e
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		e := domain.NewError(domain.KindUnknown, fmt.Sprintf("unexpected response from %s", path), err)
		e.StatusCode = resp.StatusCode
		return resp.StatusCode, e
	}
	return resp.StatusCode, nil
}

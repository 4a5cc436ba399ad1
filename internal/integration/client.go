// Package integration is the shared JSON-over-HTTP plumbing used by the clients of the
// downstream services (reference data, rule engine, notification, reporting, artifact).
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration")

// StatusError is returned when a service answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client calls one downstream service.
type Client struct {
	name     string
	baseURL  string
	category logging.Category
	http     *http.Client
}

// New returns a client for the service described by cfg.
func New(name string, cfg config.ServiceIntegration, category logging.Category) *Client {
	return &Client{
		name:     name,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		category: category,
		http: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// BaseURL returns the service root with no trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends in as a JSON body (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	ctx, span := tracer.Start(ctx, c.name+" "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	url := c.baseURL + path
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", url))

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Get(c.category).Error("%s %s failed: %v", method, url, err)
		return fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	logging.Get(c.category).Debug("%s %s -> %d in %v", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serr := &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		span.SetStatus(codes.Error, serr.Error())
		return serr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

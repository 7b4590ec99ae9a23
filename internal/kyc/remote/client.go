// Package remote is the HTTP client for the verification authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/kyc/models"
	"storefront/pkg/platform/circuit"
	"storefront/pkg/requestcontext"
)

const maxResponseBytes = 4 << 20

// Client calls the verification authority on behalf of one bearer credential
// per call. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client for the authority at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    circuit.New("authority", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),
		tracer:     otel.Tracer("storefront/kyc/remote"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ListTypes fetches the verification type catalog.
func (c *Client) ListTypes(ctx context.Context, token string) (models.Catalog, error) {
	var out models.Catalog
	if err := c.do(ctx, "list_types", token, http.MethodGet, "/kyc-types", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSubmissions fetches the caller's submissions.
func (c *Client) ListSubmissions(ctx context.Context, token string) ([]models.Submission, error) {
	var out []models.Submission
	if err := c.do(ctx, "list_submissions", token, http.MethodGet, "/kyc-documents", nil, "", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Submission{}
	}
	return out, nil
}

// GetSubmission fetches one submission by id.
func (c *Client) GetSubmission(ctx context.Context, token, id string) (*models.Submission, error) {
	var out models.Submission
	if err := c.do(ctx, "get_submission", token, http.MethodGet, submissionPath(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubmission posts a new submission as multipart form data.
func (c *Client) CreateSubmission(ctx context.Context, token, variant string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error) {
	body, contentType, err := encodeSubmission(variant, fields, attachments)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	var out models.Submission
	if err := c.do(ctx, "create_submission", token, http.MethodPost, "/kyc-documents", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubmission replaces fields and appends attachments of an existing submission.
func (c *Client) UpdateSubmission(ctx context.Context, token, id string, fields map[string]string, attachments []models.Attachment) (*models.Submission, error) {
	body, contentType, err := encodeSubmission("", fields, attachments)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	var out models.Submission
	if err := c.do(ctx, "update_submission", token, http.MethodPut, submissionPath(id), body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSubmission removes a submission.
func (c *Client) DeleteSubmission(ctx context.Context, token, id string) error {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	return c.do(ctx, "delete_submission", token, http.MethodDelete, submissionPath(id), nil, "", &out)
}

func submissionPath(id string) string {
	return "/kyc-documents/" + url.PathEscape(id)
}

type errorEnvelope struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Message          string            `json:"message"`
	FieldErrors      map[string]string `json:"field_errors"`
}

func (c *Client) do(ctx context.Context, op, token, method, path string, body *bytes.Buffer, contentType string, out any) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "authority."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(GetCategory(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		c.metrics.observe(op, outcome, start)
		span.End()
	}()

	if strings.TrimSpace(token) == "" {
		return newError(CategoryAuthentication, http.StatusUnauthorized, "sign in to continue", ErrMissingCredential)
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return newError(CategoryNetwork, 0, "verification service is temporarily unavailable", ErrCircuitOpen)
	}

	var reader io.Reader
	if body != nil {
		reader = body
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return newError(CategoryBadData, 0, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return newError(CategoryNetwork, 0, "could not reach the verification service", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(ctx)
		return newError(CategoryNetwork, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode >= 500 {
		c.recordFailure(ctx)
		return newError(CategoryNetwork, resp.StatusCode, "verification service error", fmt.Errorf("status %d", resp.StatusCode))
	}
	c.recordSuccess(ctx)

	if resp.StatusCode >= 300 {
		return classify(resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return newError(CategoryBadData, resp.StatusCode, "malformed response from verification service", err)
	}
	return nil
}

func classify(status int, payload []byte) *Error {
	var env errorEnvelope
	_ = json.Unmarshal(payload, &env)
	message := env.ErrorDescription
	if message == "" {
		message = env.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	cause := fmt.Errorf("status %d", status)

	var e *Error
	switch {
	case status == http.StatusUnauthorized:
		e = newError(CategoryAuthentication, status, message, cause)
	case status == http.StatusNotFound:
		e = newError(CategoryNotFound, status, message, cause)
	case status == http.StatusTooManyRequests:
		e = newError(CategoryNetwork, status, message, cause)
	default:
		e = newError(CategoryRejected, status, message, cause)
	}
	if len(env.FieldErrors) > 0 {
		e.Fields = env.FieldErrors
	}
	return e
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if opened, change := c.breaker.RecordFailure(); opened && change.Opened {
		c.logger.WarnContext(ctx, "authority circuit opened", "breaker", c.breaker.Name())
		c.metrics.breakerOpen(true)
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "authority circuit closed", "breaker", c.breaker.Name())
		c.metrics.breakerOpen(false)
	}
}

// IsAuthError reports whether err means the user must sign in again.
func IsAuthError(err error) bool {
	return GetCategory(err) == CategoryAuthentication
}

// IsNetworkError reports whether err is a transient transport failure.
func IsNetworkError(err error) bool {
	return GetCategory(err) == CategoryNetwork || errors.Is(err, context.DeadlineExceeded)
}

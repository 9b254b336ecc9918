// Package gateway is the single chokepoint for calls to the OCR service.
//
// Every request gets the current bearer token (when a session exists) and
// an X-Request-ID. A 401 from any endpoint invalidates the attached session
// before the error is returned, so no caller can observe a stale
// authenticated state after the call settles.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/common"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/google/uuid"
)

// Unbounded disables the per-call timeout.
const Unbounded time.Duration = -1

// DefaultTimeout applies to calls that pass a zero timeout.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Session is the view of the session manager the gateway needs.
type Session interface {
	Token() string
	Invalidate(ctx context.Context)
}

// Request describes one call. Path is relative to the base URL and must
// already be escaped.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        io.Reader
	ContentType string
	Timeout     time.Duration
}

type Gateway struct {
	base           *url.URL
	http           *http.Client
	defaultTimeout time.Duration
	log            logging.Logger
	newRequestID   func() string

	mu      sync.RWMutex
	session Session
}

type Option func(*Gateway)

// WithHTTPClient replaces the underlying client. Its Timeout should be zero;
// timeouts are applied per call.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.defaultTimeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func New(baseURL string, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", baseURL)
	}

	g := &Gateway{
		base:           u,
		http:           &http.Client{},
		defaultTimeout: DefaultTimeout,
		log:            logging.Nop(),
		newRequestID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Attach binds the session whose token is sent and which is invalidated on
// 401. Until Attach is called requests are anonymous.
func (g *Gateway) Attach(s Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = s
}

func (g *Gateway) currentSession() Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// BaseURL returns the service root.
func (g *Gateway) BaseURL() string { return g.base.String() }

func (g *Gateway) timeoutFor(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return g.defaultTimeout
	case d < 0:
		return 0
	default:
		return d
	}
}

// cancelOnClose releases the call's timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// Do sends req. A nil error means a 2xx response whose body the caller must
// close. Non-2xx responses are returned as *APIError.
func (g *Gateway) Do(ctx context.Context, req Request) (*http.Response, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if d := g.timeoutFor(req.Timeout); d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}

	u := g.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, u.String(), req.Body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := g.newRequestID()
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	sess := g.currentSession()
	if sess != nil {
		if token := sess.Token(); token != "" {
			httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}

	start := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		cancel()
		g.log.Debug(ctx, "request failed", "method", method, "path", req.Path, "request_id", requestID, "error", err)
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, req.Path, err)
	}

	g.log.Debug(ctx, "request done",
		"method", method, "path", req.Path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	cancel()

	apiErr := &APIError{Status: resp.StatusCode, Detail: parseDetail(body), RequestID: requestID}

	if resp.StatusCode == http.StatusUnauthorized && sess != nil {
		g.log.Info(ctx, "session rejected by service", "path", req.Path, "request_id", requestID)
		sess.Invalidate(context.WithoutCancel(ctx))
	}

	return nil, apiErr
}

// JSON sends in (when non-nil) as a JSON body and decodes a 2xx response
// into out (when non-nil).
func (g *Gateway) JSON(ctx context.Context, method, path string, query url.Values, in, out any, timeout time.Duration) error {
	req := Request{Method: method, Path: path, Query: query, Timeout: timeout}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.Body = bytes.NewReader(b)
		req.ContentType = "application/json"
	}

	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp.Body, out)
}

// Upload streams part as multipart/form-data to path without a timeout and
// decodes the JSON response into out.
func (g *Gateway) Upload(ctx context.Context, path string, part FilePart, progress ProgressFunc, out any) error {
	body, contentType := multipartBody(part, progress)
	defer body.Close()

	resp, err := g.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		Timeout:     Unbounded,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if progress != nil && part.Size > 0 {
		progress(part.Size, part.Size)
	}

	return decodeJSON(resp.Body, out)
}

// Download copies the 2xx response body of GET path into w and returns the
// number of bytes written.
func (g *Gateway) Download(ctx context.Context, path string, w io.Writer, timeout time.Duration) (int64, error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodGet, Path: path, Timeout: timeout})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return n, ctx.Err()
		}
		return n, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
	}
	return n, nil
}

func decodeJSON(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.invalidated++
}

func newGateway(t *testing.T, h http.Handler, opts ...Option) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return g
}

func TestNew_RejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://host", "http://", "::bad"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}
}

func TestDo_AttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}))

	// anonymous
	resp, err := g.Do(context.Background(), Request{Path: "/"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth)
	assert.NotEmpty(t, gotID)

	g.Attach(&fakeSession{token: "tok"})
	resp, err = g.Do(context.Background(), Request{Path: "/history"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestDo_401InvalidatesBeforeReturning(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}))
	sess := &fakeSession{token: "tok"}
	g.Attach(sess)

	_, err := g.Do(context.Background(), Request{Path: "/history"})
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, 1, sess.invalidated)
	assert.Empty(t, sess.Token())

	detail, ok := Detail(err)
	assert.True(t, ok)
	assert.Equal(t, "Could not validate credentials", detail)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestDo_OtherStatusesPassThrough(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Username already registered"}`)
	}))
	sess := &fakeSession{token: "tok"}
	g.Attach(sess)

	_, err := g.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/signup"})
	require.Error(t, err)

	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, 0, sess.invalidated)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Username already registered", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"User not found"}`, "User not found"},
		{"validation list", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"loc":["body",0],"msg":"field required"}]}`,
			"email: value is not a valid email address; field required"},
		{"empty body", ``, ""},
		{"html", `<html>oops</html>`, ""},
		{"no detail", `{"message":"x"}`, ""},
		{"detail object", `{"detail":{"a":1}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "service returned 500 Internal Server Error", (&APIError{Status: 500}).Error())
	assert.Equal(t, "service returned 404: gone", (&APIError{Status: 404, Detail: "gone"}).Error())
}

func TestDo_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	_, err := g.Do(context.Background(), Request{Path: "/history", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_CallerCancelIsNotUnavailable(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := g.Do(ctx, Request{Path: "/", Timeout: Unbounded})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestDo_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g, err := New(url)
	require.NoError(t, err)

	_, err = g.Do(context.Background(), Request{Path: "/"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeoutFor(t *testing.T) {
	g, err := New("http://localhost:8000", WithDefaultTimeout(3*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, g.timeoutFor(0))
	assert.Equal(t, time.Duration(0), g.timeoutFor(Unbounded))
	assert.Equal(t, time.Second, g.timeoutFor(time.Second))
}

func TestJSON_RoundTrip(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/auth/login", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"alice"}`, string(b))
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}))

	var out struct {
		Message string `json:"message"`
	}
	err := g.JSON(context.Background(), http.MethodPost, "/auth/login", nil,
		map[string]string{"username": "alice"}, &out, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Message)
}

func TestJSON_QueryAndMalformedResponse(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("skip"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `not json`)
	}))

	var out []any
	err := g.JSON(context.Background(), http.MethodGet, "/history",
		map[string][]string{"skip": {"0"}, "limit": {"20"}}, nil, &out, 0)
	require.ErrorContains(t, err, "decode response")
}

func TestUpload_StreamsMultipartWithMonotonicProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 256*1024)

	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer f.Close()

		got, _ := io.ReadAll(f)
		assert.Equal(t, len(payload), len(got))
		assert.Equal(t, `scan "1".pdf`, hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"message":"done","download_url":"/download/ocr_scan.pdf"}`)
	}))

	var (
		mu    sync.Mutex
		calls []int64
	)
	progress := func(sent, total int64) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, int64(len(payload)), total)
		calls = append(calls, sent)
	}

	var out struct {
		DownloadURL string `json:"download_url"`
	}
	err := g.Upload(context.Background(), "/process", FilePart{
		Field:       "file",
		Filename:    `scan "1".pdf`,
		ContentType: "application/pdf",
		Body:        bytes.NewReader(payload),
		Size:        int64(len(payload)),
	}, progress, &out)
	require.NoError(t, err)
	assert.Equal(t, "/download/ocr_scan.pdf", out.DownloadURL)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, calls)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i], calls[i-1])
	}
	assert.Equal(t, int64(len(payload)), calls[len(calls)-1])
}

func TestDownload_CopiesBody(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download/ocr scan.pdf", r.URL.Path)
		_, _ = io.WriteString(w, "%PDF-1.7 body")
	}))

	var buf bytes.Buffer
	n, err := g.Download(context.Background(), "/download/ocr%20scan.pdf", &buf, Unbounded)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "%PDF-1.7 body", buf.String())
}

func TestDownload_NotFound(t *testing.T) {
	g := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"File not found"}`, http.StatusNotFound)
	}))

	var buf bytes.Buffer
	_, err := g.Download(context.Background(), "/download/x.pdf", &buf, 0)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.True(t, strings.Contains(err.Error(), "File not found"))
	assert.Zero(t, buf.Len())
}

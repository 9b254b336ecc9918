package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ocrdesk/internal/common"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/users"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// requestLogger echoes X-Request-ID (minting one when absent) and logs
// every request once it completes.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(common.RequestIDHeaderName)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, reqID)

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"request_id", reqID,
		)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return "", false
	}
	if len(header) < len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", true
	}
	return strings.TrimSpace(header[len(common.BearerPrefix):]), true
}

// authenticate resolves the caller. A request without credentials yields
// an empty id; bad credentials are an error.
func (h *Handler) authenticate(r *http.Request) (string, error) {
	token, present := bearerToken(r)
	if !present {
		return "", nil
	}
	u, err := h.users.Authenticate(r.Context(), token)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// requireUser rejects requests without a valid bearer token.
func (h *Handler) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.authenticate(r)
		if err != nil || id == "" {
			writeDetail(w, http.StatusUnauthorized, users.ErrUnauthorized.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

// optionalUser lets anonymous requests through but still rejects bad
// credentials.
func (h *Handler) optionalUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.authenticate(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, users.ErrUnauthorized.Error())
			return
		}
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
		}
		next(w, r)
	})
}

// Package httpapi exposes the reference OCR service over HTTP/JSON with the
// same routes, payloads and failure details the ocrdesk client expects.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/files"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/users"
)

type Handler struct {
	users         *users.Service
	files         *files.Service
	log           logging.Logger
	maxUploadSize int64
}

func NewHandler(us *users.Service, fs *files.Service, log logging.Logger, maxUploadSize int64) *Handler {
	return &Handler{users: us, files: fs, log: log.With("module", "http"), maxUploadSize: maxUploadSize}
}

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestLogger)

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", h.signUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", h.resetPassword).Methods(http.MethodPost)
	r.Handle("/auth/me", h.requireUser(h.me)).Methods(http.MethodGet)
	r.Handle("/auth/change-password", h.requireUser(h.changePassword)).Methods(http.MethodPost)
	r.Handle("/auth/change-email", h.requireUser(h.changeEmail)).Methods(http.MethodPost)

	r.Handle("/process", h.optionalUser(h.process)).Methods(http.MethodPost)
	r.Handle("/download/{filename}", h.optionalUser(h.download)).Methods(http.MethodGet)
	r.Handle("/history", h.requireUser(h.history)).Methods(http.MethodGet)
	r.Handle("/file/{id}", h.requireUser(h.deleteFile)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

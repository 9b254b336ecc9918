package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/files"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/users"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
	resetCodeLength   = 6
	defaultPageSize   = 20
	maxPageSize       = 100
	maxJSONBody       = 1 << 20
)

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type changeEmailRequest struct {
	NewEmail string `json:"new_email"`
}

type forgotPasswordRequest struct {
	Username string `json:"username"`
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	ResetCode   string `json:"reset_code"`
	NewPassword string `json:"new_password"`
}

// fieldRules collects body validation failures in the 422 format.
type fieldRules []fieldError

func (f *fieldRules) minLength(field, value string, n int) {
	if utf8.RuneCountInString(value) < n {
		*f = append(*f, fieldError{
			Loc:  []string{"body", field},
			Msg:  fmt.Sprintf("String should have at least %d characters", n),
			Type: "string_too_short",
		})
	}
}

func (f *fieldRules) email(field, value string) {
	local, domain, ok := strings.Cut(strings.TrimSpace(value), "@")
	if !ok || local == "" || !strings.Contains(domain, ".") {
		*f = append(*f, fieldError{
			Loc:  []string{"body", field},
			Msg:  "value is not a valid email address",
			Type: "value_error",
		})
	}
}

// decode reads a JSON body into v. It writes the error response itself and
// reports whether the handler should go on.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeValidation(w, []fieldError{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, users.ErrWrongOldPassword),
		errors.Is(err, users.ErrInvalidResetCode),
		errors.Is(err, files.ErrUnsupportedType):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrBadCredentials), errors.Is(err, users.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, files.ErrFileNotFound),
		errors.Is(err, files.ErrArtifactNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "OCR PDF Service",
		"status":  "running",
		"endpoints": map[string]string{
			"POST /process":            "Upload a file for OCR",
			"GET /download/{filename}": "Download the processed file",
		},
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}
	var rules fieldRules
	rules.minLength("username", req.Username, minUsernameLength)
	rules.email("email", req.Email)
	rules.minLength("password", req.Password, minPasswordLength)
	if len(rules) > 0 {
		writeValidation(w, rules)
		return
	}

	sess, err := h.users.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toToken(sess))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toToken(sess))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(*u))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	var rules fieldRules
	rules.minLength("new_password", req.NewPassword, minPasswordLength)
	if len(rules) > 0 {
		writeValidation(w, rules)
		return
	}

	if err := h.users.ChangePassword(r.Context(), userIDFrom(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (h *Handler) changeEmail(w http.ResponseWriter, r *http.Request) {
	var req changeEmailRequest
	if !decode(w, r, &req) {
		return
	}
	var rules fieldRules
	rules.email("new_email", req.NewEmail)
	if len(rules) > 0 {
		writeValidation(w, rules)
		return
	}

	if err := h.users.ChangeEmail(r.Context(), userIDFrom(r.Context()), req.NewEmail); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email changed successfully"})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	masked, err := h.users.ForgotPassword(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forgotPasswordResponse{Email: masked, Message: "Reset code sent to your email"})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	var rules fieldRules
	if utf8.RuneCountInString(req.ResetCode) != resetCodeLength {
		rules = append(rules, fieldError{
			Loc:  []string{"body", "reset_code"},
			Msg:  fmt.Sprintf("String should have %d characters", resetCodeLength),
			Type: "string_length",
		})
	}
	rules.minLength("new_password", req.NewPassword, minPasswordLength)
	if len(rules) > 0 {
		writeValidation(w, rules)
		return
	}

	if err := h.users.ResetPassword(r.Context(), req.Username, req.ResetCode, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeValidation(w, []fieldError{{Loc: []string{"body", "file"}, Msg: "Field required", Type: "missing"}})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, []fieldError{{Loc: []string{"body", "file"}, Msg: "Field required", Type: "missing"}})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	res, err := h.files.Process(r.Context(), userIDFrom(r.Context()), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Message: res.Message, DownloadURL: res.DownloadURL, Filename: res.Filename})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	data, err := h.files.Open(r.Context(), userIDFrom(r.Context()), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func queryInt(q url.Values, key string, def int) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var rules fieldRules
	skip, ok := queryInt(q, "skip", 0)
	if !ok {
		rules = append(rules, fieldError{Loc: []string{"query", "skip"}, Msg: "Input should be a valid integer", Type: "int_parsing"})
	}
	limit, ok := queryInt(q, "limit", defaultPageSize)
	if !ok || limit > maxPageSize {
		rules = append(rules, fieldError{Loc: []string{"query", "limit"}, Msg: "Input should be a valid page size", Type: "int_parsing"})
	}
	if len(rules) > 0 {
		writeValidation(w, rules)
		return
	}

	list, err := h.files.History(r.Context(), userIDFrom(r.Context()), skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]fileResponse, 0, len(list))
	for _, f := range list {
		out = append(out, toFile(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.files.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/files"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/users"
)

// createdAtLayout writes UTC timestamps without a zone suffix.
const createdAtLayout = "2006-01-02T15:04:05.000000"

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type forgotPasswordResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type processResponse struct {
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

type fileResponse struct {
	ID                string  `json:"id"`
	OriginalFilename  string  `json:"original_filename"`
	ProcessedFilename string  `json:"processed_filename"`
	FileSize          int64   `json:"file_size"`
	FileType          string  `json:"file_type"`
	ProcessingStatus  string  `json:"processing_status"`
	ProcessingTime    float64 `json:"processing_time"`
	CreatedAt         string  `json:"created_at"`
	DownloadCount     int     `json:"download_count"`
}

type detailResponse struct {
	Detail any `json:"detail"`
}

// fieldError is one entry of a 422 detail list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func toUser(u users.User) userResponse {
	return userResponse{ID: u.ID, Username: u.UserName, Email: u.Email}
}

func toToken(s *users.Session) tokenResponse {
	return tokenResponse{AccessToken: s.AccessToken, TokenType: "bearer", User: toUser(s.User)}
}

func toFile(f files.File) fileResponse {
	return fileResponse{
		ID:                f.ID,
		OriginalFilename:  f.OriginalFilename,
		ProcessedFilename: f.ProcessedFilename,
		FileSize:          f.FileSize,
		FileType:          f.FileType,
		ProcessingStatus:  f.ProcessingStatus,
		ProcessingTime:    f.ProcessingTime,
		CreatedAt:         f.CreatedAt.UTC().Format(createdAtLayout),
		DownloadCount:     f.DownloadCount,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func writeValidation(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: errs})
}

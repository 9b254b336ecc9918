package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
)

// Timeouts bounds calls per endpoint group. Zero uses the gateway default;
// gateway.Unbounded disables the limit.
type Timeouts struct {
	Auth     time.Duration
	History  time.Duration
	Ping     time.Duration
	Process  time.Duration
	Download time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Auth:     15 * time.Second,
		History:  30 * time.Second,
		Ping:     5 * time.Second,
		Process:  gateway.Unbounded,
		Download: gateway.Unbounded,
	}
}

// HTTPClient talks to the OCR service through a gateway.Gateway.
type HTTPClient struct {
	gw       *gateway.Gateway
	timeouts Timeouts
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(gw *gateway.Gateway, timeouts Timeouts) *HTTPClient {
	return &HTTPClient{gw: gw, timeouts: timeouts}
}

func (c *HTTPClient) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/signup", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return checkAuth(&resp)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/login", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return checkAuth(&resp)
}

func checkAuth(resp *models.AuthResponse) (*models.AuthResponse, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrBadResponse)
	}
	return resp, nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/change-password", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ChangeEmail(ctx context.Context, newEmail string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ChangeEmailRequest{NewEmail: newEmail}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/change-email", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, username string) (*models.ForgotPasswordResponse, error) {
	var resp models.ForgotPasswordResponse
	req := models.ForgotPasswordRequest{Username: username}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/forgot-password", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, username, resetCode, newPassword string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ResetPasswordRequest{Username: username, ResetCode: resetCode, NewPassword: newPassword}
	if err := c.gw.JSON(ctx, http.MethodPost, "/auth/reset-password", nil, req, &resp, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the profile bound to the current token.
func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.gw.JSON(ctx, http.MethodGet, "/auth/me", nil, nil, &u, c.timeouts.Auth); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) Process(ctx context.Context, file *models.SourceFile, progress gateway.ProgressFunc) (*models.ProcessResult, error) {
	if file == nil || file.Open == nil {
		return nil, fmt.Errorf("process: no file")
	}

	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer body.Close()

	var resp models.ProcessResult
	part := gateway.FilePart{
		Field:       "file",
		Filename:    file.Name,
		ContentType: file.ContentType,
		Body:        body,
		Size:        file.Size,
	}
	if err := c.gw.Upload(ctx, "/process", part, progress, &resp); err != nil {
		return nil, err
	}
	if resp.DownloadURL == "" {
		return nil, fmt.Errorf("%w: missing download_url", ErrBadResponse)
	}
	return &resp, nil
}

func (c *HTTPClient) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	return c.gw.Download(ctx, "/download/"+url.PathEscape(filename), w, c.timeouts.Download)
}

func (c *HTTPClient) History(ctx context.Context, skip, limit int) ([]models.HistoryEntry, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var entries []models.HistoryEntry
	if err := c.gw.JSON(ctx, http.MethodGet, "/history", q, nil, &entries, c.timeouts.History); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id models.EntryID) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	path := "/file/" + url.PathEscape(id.String())
	if err := c.gw.JSON(ctx, http.MethodDelete, path, nil, nil, &resp, c.timeouts.History); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping probes GET / and succeeds on any 2xx.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/", Timeout: c.timeouts.Ping})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

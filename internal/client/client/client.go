package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
)

// AuthClient covers the /auth endpoints.
type AuthClient interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, username, password string) (*models.AuthResponse, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (*models.MessageResponse, error)
	ChangeEmail(ctx context.Context, newEmail string) (*models.MessageResponse, error)
	ForgotPassword(ctx context.Context, username string) (*models.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, username, resetCode, newPassword string) (*models.MessageResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

// ProcessClient submits documents and fetches artifacts.
type ProcessClient interface {
	Process(ctx context.Context, file *models.SourceFile, progress gateway.ProgressFunc) (*models.ProcessResult, error)
	Download(ctx context.Context, filename string, w io.Writer) (int64, error)
}

// HistoryClient lists and deletes previously processed files.
type HistoryClient interface {
	History(ctx context.Context, skip, limit int) ([]models.HistoryEntry, error)
	DeleteFile(ctx context.Context, id models.EntryID) (*models.MessageResponse, error)
}

type Client interface {
	AuthClient
	ProcessClient
	HistoryClient
	Ping(ctx context.Context) error
}

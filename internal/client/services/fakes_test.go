package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
)

var en = messages.New(messages.English)

// fakeAuth implements client.AuthClient.
type fakeAuth struct {
	calls atomic.Int32

	authResp *models.AuthResponse
	authErr  error

	msgResp *models.MessageResponse
	msgErr  error

	forgotResp *models.ForgotPasswordResponse
	forgotErr  error

	me    *models.User
	meErr error

	lastEmail string
}

func (f *fakeAuth) SignUp(_ context.Context, _ models.SignUpRequest) (*models.AuthResponse, error) {
	f.calls.Add(1)
	return f.authResp, f.authErr
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (*models.AuthResponse, error) {
	f.calls.Add(1)
	return f.authResp, f.authErr
}

func (f *fakeAuth) ChangePassword(_ context.Context, _, _ string) (*models.MessageResponse, error) {
	f.calls.Add(1)
	return f.msgResp, f.msgErr
}

func (f *fakeAuth) ChangeEmail(_ context.Context, email string) (*models.MessageResponse, error) {
	f.calls.Add(1)
	f.lastEmail = email
	return f.msgResp, f.msgErr
}

func (f *fakeAuth) ForgotPassword(_ context.Context, _ string) (*models.ForgotPasswordResponse, error) {
	f.calls.Add(1)
	return f.forgotResp, f.forgotErr
}

func (f *fakeAuth) ResetPassword(_ context.Context, _, _, _ string) (*models.MessageResponse, error) {
	f.calls.Add(1)
	return f.msgResp, f.msgErr
}

func (f *fakeAuth) Me(context.Context) (*models.User, error) {
	f.calls.Add(1)
	return f.me, f.meErr
}

// fakeProcess implements client.ProcessClient.
type fakeProcess struct {
	mu sync.Mutex

	// gate, when set, blocks Process until closed.
	gate    chan struct{}
	started chan struct{}

	result  *models.ProcessResult
	err     error
	calls   int
	steps   [][2]int64
	content string
	dlErr   error
	dlNames []string
}

func (f *fakeProcess) Process(ctx context.Context, file *models.SourceFile, progress gateway.ProgressFunc) (*models.ProcessResult, error) {
	f.mu.Lock()
	f.calls++
	gate, started, steps, result, err := f.gate, f.started, f.steps, f.result, f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	for _, s := range steps {
		progress(s[0], s[1])
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, err
}

func (f *fakeProcess) Download(_ context.Context, filename string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.dlNames = append(f.dlNames, filename)
	dlErr := f.dlErr
	f.mu.Unlock()
	if dlErr != nil {
		return 0, dlErr
	}
	n, err := io.Copy(w, strings.NewReader(f.content))
	return n, err
}

// fakeHistory implements client.HistoryClient.
type fakeHistory struct {
	mu        sync.Mutex
	entries   []models.HistoryEntry
	err       error
	deleteErr error
	calls     int
	deleted   []models.EntryID
	gate      chan struct{}
	lastSkip  int
	lastLimit int
	ctxErrs   []error
}

func (f *fakeHistory) History(ctx context.Context, skip, limit int) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	f.calls++
	f.lastSkip, f.lastLimit = skip, limit
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	out := append([]models.HistoryEntry(nil), f.entries...)
	return out, f.err
}

func (f *fakeHistory) DeleteFile(_ context.Context, id models.EntryID) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return &models.MessageResponse{Message: "File deleted successfully"}, nil
}

type staticAuth bool

func (s staticAuth) IsAuthenticated() bool { return bool(s) }

// switchAuth is an Authenticator whose answer can change mid-test.
type switchAuth struct {
	mu     sync.Mutex
	authed bool
}

func (s *switchAuth) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *switchAuth) set(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = v
}

// memSaver collects saved artifacts in memory.
type memSaver struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemSaver() *memSaver { return &memSaver{files: make(map[string]string)} }

func (m *memSaver) Save(name string, fill func(w io.Writer) error) (string, error) {
	var b strings.Builder
	if err := fill(&b); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = b.String()
	return "/downloads/" + name, nil
}

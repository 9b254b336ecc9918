package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/client/client"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/ocrdesk/internal/events"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

type SessionEventKind int

const (
	SignedIn SessionEventKind = iota + 1
	SignedOut
	// Expired follows a 401 from the service.
	Expired
	ProfileUpdated
)

func (k SessionEventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Expired:
		return "expired"
	case ProfileUpdated:
		return "profile_updated"
	default:
		return "unknown"
	}
}

// SessionEvent is published after every session change. User is a copy of
// the profile after the change, nil when signed out.
type SessionEvent struct {
	Kind SessionEventKind
	User *models.User
}

// SessionManager owns the authenticated session. It is the only writer of
// the credential store; everything else reads through its accessors.
// The token and the user are always set and cleared together.
type SessionManager struct {
	api    client.AuthClient
	store  credentials.Store
	msgs   *messages.Catalog
	log    logging.Logger
	events *events.Hub[SessionEvent]
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *models.User
}

func NewSessionManager(api client.AuthClient, store credentials.Store, msgs *messages.Catalog, log logging.Logger) *SessionManager {
	if log == nil {
		log = logging.Nop()
	}
	return &SessionManager{
		api:    api,
		store:  store,
		msgs:   msgs,
		log:    log.With("component", "session"),
		events: events.NewHub[SessionEvent](),
		now:    time.Now,
	}
}

// Subscribe registers fn for session events and returns its unsubscribe
// function. fn runs on the goroutine that changed the session.
func (m *SessionManager) Subscribe(fn func(SessionEvent)) func() {
	return m.events.Subscribe(fn)
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the current profile, or nil.
func (m *SessionManager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// ExpiresAt reports the exp claim of the current token when it is a JWT.
func (m *SessionManager) ExpiresAt() (time.Time, bool) {
	return tokenExpiry(m.Token())
}

func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Restore loads a persisted session. A JWT whose exp has passed is
// discarded along with the stored user. It reports whether a session is
// active afterwards.
func (m *SessionManager) Restore(ctx context.Context) (bool, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return false, nil
	}

	if exp, ok := tokenExpiry(sess.Token); ok && !m.now().Before(exp) {
		m.log.Info(ctx, "stored token expired", "expired_at", exp)
		if err := m.store.Clear(ctx); err != nil {
			return false, fmt.Errorf("clear expired session: %w", err)
		}
		return false, nil
	}

	u := sess.User
	m.mu.Lock()
	m.token = sess.Token
	m.user = &u
	m.mu.Unlock()

	m.events.Publish(SessionEvent{Kind: SignedIn, User: &u})
	return true, nil
}

func (m *SessionManager) SignUp(ctx context.Context, username, email, password string) (*models.AuthResponse, error) {
	if err := validationError(m.msgs, ValidateSignUp(username, email, password)); err != nil {
		return nil, err
	}

	resp, err := m.api.SignUp(ctx, models.SignUpRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return nil, m.authError(ctx, "signup", err, messages.SignUpFailed)
	}
	if err := m.establish(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *SessionManager) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	if err := validationError(m.msgs, ValidateLogin(username, password)); err != nil {
		return nil, err
	}

	resp, err := m.api.Login(ctx, username, password)
	if err != nil {
		return nil, m.authError(ctx, "login", err, messages.LoginFailed)
	}
	if err := m.establish(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// establish persists then publishes a new session.
func (m *SessionManager) establish(ctx context.Context, resp *models.AuthResponse) error {
	u := resp.User
	if err := m.store.Save(ctx, credentials.Session{Token: resp.AccessToken, User: u}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	m.mu.Lock()
	m.token = resp.AccessToken
	m.user = &u
	m.mu.Unlock()

	m.log.Info(ctx, "signed in", "username", u.Username)
	m.events.Publish(SessionEvent{Kind: SignedIn, User: &u})
	return nil
}

// ChangePassword returns the confirmation text on success.
func (m *SessionManager) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) (string, error) {
	if err := validationError(m.msgs, ValidateChangePassword(oldPassword, newPassword, confirm)); err != nil {
		return "", err
	}
	if err := m.requireSession("change_password"); err != nil {
		return "", err
	}

	resp, err := m.api.ChangePassword(ctx, oldPassword, newPassword)
	if err != nil {
		return "", m.authError(ctx, "change_password", err, messages.ChangePasswordFailed)
	}
	return m.confirmation(resp, messages.PasswordChanged), nil
}

// ChangeEmail updates the cached and persisted profile on success.
func (m *SessionManager) ChangeEmail(ctx context.Context, newEmail string) (string, error) {
	if err := validationError(m.msgs, ValidateChangeEmail(newEmail)); err != nil {
		return "", err
	}
	if err := m.requireSession("change_email"); err != nil {
		return "", err
	}

	resp, err := m.api.ChangeEmail(ctx, newEmail)
	if err != nil {
		return "", m.authError(ctx, "change_email", err, messages.ChangeEmailFailed)
	}

	m.mu.Lock()
	if m.user == nil {
		// signed out while the call was in flight
		m.mu.Unlock()
		return m.confirmation(resp, messages.EmailChanged), nil
	}
	m.user.Email = newEmail
	u := *m.user
	m.mu.Unlock()

	if err := m.store.UpdateUser(ctx, u); err != nil {
		m.log.Warn(ctx, "persist profile failed", "error", err)
	}
	m.events.Publish(SessionEvent{Kind: ProfileUpdated, User: &u})
	return m.confirmation(resp, messages.EmailChanged), nil
}

// Refresh reloads the profile from the service.
func (m *SessionManager) Refresh(ctx context.Context) (*models.User, error) {
	if err := m.requireSession("refresh"); err != nil {
		return nil, err
	}

	fresh, err := m.api.Me(ctx)
	if err != nil {
		return nil, m.authError(ctx, "refresh", err, messages.LoginFailed)
	}

	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return nil, m.notAuthenticated("refresh")
	}
	m.user = fresh
	u := *fresh
	m.mu.Unlock()

	if err := m.store.UpdateUser(ctx, u); err != nil {
		m.log.Warn(ctx, "persist profile failed", "error", err)
	}
	m.events.Publish(SessionEvent{Kind: ProfileUpdated, User: &u})
	return &u, nil
}

// ForgotPassword asks the service to mail a reset code and returns the
// masked address it went to.
func (m *SessionManager) ForgotPassword(ctx context.Context, username string) (string, error) {
	if err := validationError(m.msgs, ValidateForgotPassword(username)); err != nil {
		return "", err
	}

	resp, err := m.api.ForgotPassword(ctx, username)
	if err != nil {
		return "", m.authError(ctx, "forgot_password", err, messages.ForgotPasswordFailed)
	}
	return resp.Email, nil
}

func (m *SessionManager) ResetPassword(ctx context.Context, username, code, newPassword, confirm string) (string, error) {
	if err := validationError(m.msgs, ValidateResetPassword(username, code, newPassword, confirm)); err != nil {
		return "", err
	}

	resp, err := m.api.ResetPassword(ctx, username, code, newPassword)
	if err != nil {
		return "", m.authError(ctx, "reset_password", err, messages.ResetPasswordFailed)
	}
	return m.confirmation(resp, messages.PasswordReset), nil
}

// Logout clears the session in memory, then in storage. It is idempotent
// and publishes SignedOut only when a session existed. The in-memory
// session is gone even when the storage error is returned.
func (m *SessionManager) Logout(ctx context.Context) error {
	existed := m.clear()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if existed {
		m.log.Info(ctx, "signed out")
		m.events.Publish(SessionEvent{Kind: SignedOut})
	}
	return nil
}

// Invalidate drops the session after the service rejected the token.
// It is called by the gateway before the rejected call returns.
func (m *SessionManager) Invalidate(ctx context.Context) {
	existed := m.clear()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Error(ctx, "clear rejected session", "error", err)
	}
	if existed {
		m.log.Info(ctx, "session expired")
		m.events.Publish(SessionEvent{Kind: Expired})
	}
}

func (m *SessionManager) clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	existed := m.token != ""
	m.token = ""
	m.user = nil
	return existed
}

func (m *SessionManager) requireSession(op string) error {
	if m.IsAuthenticated() {
		return nil
	}
	return m.notAuthenticated(op)
}

func (m *SessionManager) notAuthenticated(op string) error {
	return &AuthError{Op: op, Message: m.msgs.Text(messages.SessionExpired), Err: ErrNotAuthenticated}
}

func (m *SessionManager) authError(ctx context.Context, op string, err error, fallback messages.Key) error {
	reason, text := normalize(m.msgs, err, fallback)
	m.log.Warn(ctx, "auth call failed", "op", op, "reason", reason, "error", err)
	return &AuthError{Op: op, Reason: reason, Message: text, Err: err}
}

func (m *SessionManager) confirmation(resp *models.MessageResponse, fallback messages.Key) string {
	if resp != nil && resp.Message != "" {
		return resp.Message
	}
	return m.msgs.Text(fallback)
}

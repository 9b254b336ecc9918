// Package users implements accounts, tokens and password reset for the
// reference service.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ocrdesk/internal/common"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/dmitrijs2005/ocrdesk/internal/stubserver/auth"
)

// Error texts are the reasons the client recognizes.
var (
	ErrNotFound         = errors.New("User not found")
	ErrUsernameTaken    = errors.New("Username already registered")
	ErrEmailTaken       = errors.New("Email already registered")
	ErrBadCredentials   = errors.New("Incorrect username or password")
	ErrWrongOldPassword = errors.New("Incorrect old password")
	ErrInvalidResetCode = errors.New("Invalid or expired reset code")
	ErrUnauthorized     = errors.New("Could not validate credentials")
)

const resetCodeDigits = 6

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogMailer "sends" reset codes by logging them.
type LogMailer struct {
	Log logging.Logger
}

func (m LogMailer) SendResetCode(ctx context.Context, email, code string) error {
	m.Log.Info(ctx, "reset code issued", "email", email, "code", code)
	return nil
}

type Service struct {
	repo                        Repository
	mailer                      Mailer
	log                         logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	resetCodeValidityDuration   time.Duration
	now                         func() time.Time

	mu     sync.Mutex
	resets map[string]resetCode
}

func NewService(repo Repository, mailer Mailer, log logging.Logger, secret []byte, tokenTTL, resetTTL time.Duration) *Service {
	return &Service{
		repo:                        repo,
		mailer:                      mailer,
		log:                         log.With("module", "users"),
		jwtSecret:                   secret,
		accessTokenValidityDuration: tokenTTL,
		resetCodeValidityDuration:   resetTTL,
		now:                         time.Now,
		resets:                      make(map[string]resetCode),
	}
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func (s *Service) issue(user *User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{AccessToken: token, User: *user}, nil
}

func (s *Service) SignUp(ctx context.Context, username, email, password string) (*Session, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		UserName:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "username", username)
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return s.issue(user)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, oldPassword) {
		return ErrWrongOldPassword
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

func (s *Service) ChangeEmail(ctx context.Context, userID, newEmail string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Email = strings.TrimSpace(newEmail)
	return s.repo.Update(ctx, user)
}

// ForgotPassword issues a fresh reset code for username, replacing any
// earlier one, and returns the masked address it was sent to.
func (s *Service) ForgotPassword(ctx context.Context, username string) (string, error) {
	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		return "", err
	}

	code, err := common.MakeRandDigits(resetCodeDigits)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	s.mu.Lock()
	s.resets[user.ID] = resetCode{code: code, expiresAt: s.now().Add(s.resetCodeValidityDuration)}
	s.mu.Unlock()

	if err := s.mailer.SendResetCode(ctx, user.Email, code); err != nil {
		return "", fmt.Errorf("send reset code: %w", err)
	}
	return MaskEmail(user.Email), nil
}

// ResetPassword sets a new password when code matches the outstanding,
// unexpired code. A used code is discarded.
func (s *Service) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	rc, ok := s.resets[user.ID]
	valid := ok && s.now().Before(rc.expiresAt) &&
		subtle.ConstantTimeCompare([]byte(rc.code), []byte(code)) == 1
	if ok && !s.now().Before(rc.expiresAt) {
		delete(s.resets, user.ID)
	}
	if valid {
		delete(s.resets, user.ID)
	}
	s.mu.Unlock()

	if !valid {
		return ErrInvalidResetCode
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" becomes "a****@example.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	runes := []rune(local)
	return string(runes[0]) + strings.Repeat("*", len(runes)-1) + "@" + domain
}

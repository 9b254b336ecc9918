package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

type captureMailer struct {
	email string
	code  string
}

func (m *captureMailer) SendResetCode(ctx context.Context, email, code string) error {
	m.email, m.code = email, code
	return nil
}

func newService(t *testing.T) (*Service, *captureMailer) {
	t.Helper()
	mailer := &captureMailer{}
	s := NewService(NewMemoryRepository(), mailer, logging.Nop(), []byte("secret"), time.Hour, 5*time.Minute)
	return s, mailer
}

func TestSignUpAndLogin(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	sess, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.User.ID)
	assert.NotEqual(t, []byte("secret1"), sess.User.PasswordHash)

	got, err := s.Authenticate(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)

	_, err = s.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = s.Login(ctx, "bob", "secret1")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestSignUp_Duplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	_, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = s.SignUp(ctx, "alice", "other@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = s.SignUp(ctx, "bob", "ALICE@example.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate_Rejects(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	_, err := s.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewService(NewMemoryRepository(), &captureMailer{}, logging.Nop(), []byte("secret"), time.Hour, time.Minute)
	sess, err := other.SignUp(ctx, "ghost", "g@example.com", "secret1")
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "valid signature but unknown user")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	sess, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangePassword(ctx, sess.User.ID, "nope", "secret2"), ErrWrongOldPassword)
	require.NoError(t, s.ChangePassword(ctx, sess.User.ID, "secret1", "secret2"))

	_, err = s.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = s.Login(ctx, "alice", "secret2")
	assert.NoError(t, err)
}

func TestChangeEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	a, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	_, err = s.SignUp(ctx, "bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangeEmail(ctx, a.User.ID, "bob@example.com"), ErrEmailTaken)
	require.NoError(t, s.ChangeEmail(ctx, a.User.ID, "new@example.com"))

	u, err := s.Get(ctx, a.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)

	// the old address is free again
	_, err = s.SignUp(ctx, "carol", "alice@example.com", "secret1")
	assert.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	s, mailer := newService(t)
	_, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = s.ForgotPassword(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	masked, err := s.ForgotPassword(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a****@example.com", masked)
	assert.Equal(t, "alice@example.com", mailer.email)
	require.Len(t, mailer.code, 6)

	assert.ErrorIs(t, s.ResetPassword(ctx, "alice", "000000x", "secret2"), ErrInvalidResetCode)
	require.NoError(t, s.ResetPassword(ctx, "alice", mailer.code, "secret2"))
	assert.ErrorIs(t, s.ResetPassword(ctx, "alice", mailer.code, "secret3"), ErrInvalidResetCode, "codes are single use")

	_, err = s.Login(ctx, "alice", "secret2")
	assert.NoError(t, err)
}

func TestPasswordReset_Expired(t *testing.T) {
	ctx := context.Background()
	s, mailer := newService(t)
	_, err := s.SignUp(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	start := time.Now()
	s.now = func() time.Time { return start }
	_, err = s.ForgotPassword(ctx, "alice")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(5*time.Minute + time.Second) }
	assert.ErrorIs(t, s.ResetPassword(ctx, "alice", mailer.code, "secret2"), ErrInvalidResetCode)
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com": "a****@example.com",
		"a@x.io":            "a@x.io",
		"no-at-sign":        "no-at-sign",
		"@x.io":             "@x.io",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}

func TestHashPassword_UsesBcrypt(t *testing.T) {
	hash, err := hashPassword("secret1")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("secret1")))
	assert.True(t, checkPassword(hash, "secret1"))
	assert.False(t, checkPassword(hash, "secret2"))
}

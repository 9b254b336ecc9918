package users

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// MemoryRepository keeps users in process memory. Usernames are case
// sensitive; emails are compared case-insensitively.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byLogin map[string]string
	byEmail map[string]string
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]User),
		byLogin: make(map[string]string),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLogin[user.UserName]; ok {
		return nil, ErrUsernameTaken
	}
	if _, ok := r.byEmail[emailKey(user.Email)]; ok {
		return nil, ErrEmailTaken
	}

	u := *user
	u.ID = uuid.NewString()
	r.byID[u.ID] = u
	r.byLogin[u.UserName] = u.ID
	r.byEmail[emailKey(u.Email)] = u.ID
	return &u, nil
}

func (r *MemoryRepository) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byLogin[login]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// Update replaces the stored email and password hash of user.ID.
func (r *MemoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}

	newKey := emailKey(user.Email)
	if owner, ok := r.byEmail[newKey]; ok && owner != user.ID {
		return ErrEmailTaken
	}
	delete(r.byEmail, emailKey(old.Email))
	r.byEmail[newKey] = user.ID

	old.Email = user.Email
	old.PasswordHash = user.PasswordHash
	r.byID[user.ID] = old
	return nil
}

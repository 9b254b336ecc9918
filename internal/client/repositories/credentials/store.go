// Package credentials persists the authenticated session (bearer token and
// user profile) so it survives restarts of the CLI.
//
// The two values are always written and removed together. A store that
// finds only one of them treats the session as absent.
package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ocrdesk/internal/dbx"
)

const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

// Session is the persisted pair.
type Session struct {
	Token string
	User  models.User
}

// Store is the durable session storage used by the session manager.
// Load returns (nil, nil) when nothing is persisted.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	UpdateUser(ctx context.Context, u models.User) error
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the session in the metadata table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	rawUser, err := repo.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 || len(rawUser) == 0 {
		return nil, nil
	}

	var u models.User
	if err := json.Unmarshal(rawUser, &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return &Session{Token: string(token), User: u}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyAccessToken, []byte(sess.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, KeyUser, rawUser)
	})
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u models.User) error {
	rawUser, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		token, err := repo.Get(ctx, KeyAccessToken)
		if err != nil {
			return err
		}
		if len(token) == 0 {
			return nil
		}
		return repo.Set(ctx, KeyUser, rawUser)
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, KeyAccessToken); err != nil {
			return err
		}
		return repo.Delete(ctx, KeyUser)
	})
}

// MemoryStore is a process-local Store that forgets everything on exit.
// Session tests use it in place of SQLiteStore.
type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &s
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		m.sess.User = u
	}
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

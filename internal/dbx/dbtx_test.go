package dbx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ocrdesk/internal/client/client"
	"github.com/dmitrijs2005/ocrdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ocrdesk/internal/dbx"
)

// openMetadataDB returns a migrated in-memory database with the metadata
// table the credential store writes to.
func openMetadataDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func readKey(t *testing.T, db *sql.DB, key string) []byte {
	t.Helper()
	v, err := metadata.NewSQLiteRepository(db).Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

// saveSession writes both credential keys the way the SQLite credential
// store does, then returns fail.
func saveSession(token, user string, fail error) func(ctx context.Context, tx dbx.DBTX) error {
	return func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, "access_token", []byte(token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, "user", []byte(user)); err != nil {
			return err
		}
		return fail
	}
}

func TestWithTx_CommitsTokenAndUserTogether(t *testing.T) {
	db := openMetadataDB(t)

	err := dbx.WithTx(context.Background(), db, nil, saveSession("tok-1", `{"username":"alice"}`, nil))
	require.NoError(t, err)

	assert.Equal(t, "tok-1", string(readKey(t, db, "access_token")))
	assert.JSONEq(t, `{"username":"alice"}`, string(readKey(t, db, "user")))
}

func TestWithTx_ErrorKeepsPreviousSession(t *testing.T) {
	db := openMetadataDB(t)
	ctx := context.Background()
	require.NoError(t, dbx.WithTx(ctx, db, nil, saveSession("old", `{"username":"alice"}`, nil)))

	boom := errors.New("boom")
	err := dbx.WithTx(ctx, db, nil, saveSession("new", `{"username":"bob"}`, boom))
	require.ErrorIs(t, err, boom)

	assert.Equal(t, "old", string(readKey(t, db, "access_token")))
	assert.JSONEq(t, `{"username":"alice"}`, string(readKey(t, db, "user")))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openMetadataDB(t)

	defer func() {
		r := recover()
		require.Equal(t, "store crashed", r)
		assert.Nil(t, readKey(t, db, "access_token"), "half-written session must not survive")
	}()

	_ = dbx.WithTx(context.Background(), db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		require.NoError(t, metadata.NewSQLiteRepository(tx).Set(ctx, "access_token", []byte("tok")))
		panic("store crashed")
	})
}

func TestWithTx_ClearIsAllOrNothing(t *testing.T) {
	db := openMetadataDB(t)
	ctx := context.Background()
	require.NoError(t, dbx.WithTx(ctx, db, nil, saveSession("tok", `{"username":"alice"}`, nil)))

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Delete(ctx, "access_token"); err != nil {
			return err
		}
		return errors.New("user delete failed")
	})
	require.Error(t, err)
	assert.Equal(t, "tok", string(readKey(t, db, "access_token")))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openMetadataDB(t)
	require.NoError(t, db.Close())

	err := dbx.WithTx(context.Background(), db, nil, saveSession("tok", "{}", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

func TestLoad_Empty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	s, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Token)
	assert.Nil(t, s.User)
}

func TestSave_ThenLoad(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "tok", []byte(`{"username":"ada"}`)))

	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.JSONEq(t, `{"username":"ada"}`, string(s.User))
}

func TestSave_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "tok", []byte("u")))
	require.NoError(t, r.Save(ctx, "tok", []byte("u")))

	assert.Equal(t, 2, countRows(t, db))
	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Token: "tok", User: []byte("u")}, s)
}

func TestSave_EmptyValuesDeleteSlots(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "tok", []byte("u")))
	require.NoError(t, r.Save(ctx, "tok2", nil))

	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", s.Token)
	assert.Nil(t, s.User)
	assert.Equal(t, 1, countRows(t, db))
}

func TestSaveUser_KeepsToken(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "tok", []byte("old")))
	require.NoError(t, r.SaveUser(ctx, []byte("new")))

	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, []byte("new"), s.User)
}

func TestDeleteToken_LeavesUser(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "tok", []byte("u")))
	require.NoError(t, r.DeleteToken(ctx))
	require.NoError(t, r.DeleteToken(ctx))

	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Token)
	assert.Equal(t, []byte("u"), s.User)
}

func TestClear_OnlyTouchesSessionSlots(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES ('other', x'01')`)
	require.NoError(t, err)
	require.NoError(t, r.Save(ctx, "tok", []byte("u")))

	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx))

	s, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)
	assert.Equal(t, 1, countRows(t, db))
}

func TestSave_InsideRolledBackTx(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		require.NoError(t, NewSQLiteRepository(tx).Save(ctx, "tok", []byte("u")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	s, err := NewSQLiteRepository(db).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get session[token]")

	err = r.Save(ctx, "tok", []byte("u"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set session[token]")

	err = r.DeleteToken(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete session[token]")

	err = r.Clear(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear session")
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
)

// SQLiteRepository works on a *sql.DB or a *sql.Tx; callers that need both
// slots written together pass a transaction.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) (Snapshot, error) {
	var s Snapshot

	token, err := r.get(ctx, SlotToken)
	if err != nil {
		return s, err
	}
	s.Token = string(token)

	if s.User, err = r.get(ctx, SlotUser); err != nil {
		return s, err
	}
	return s, nil
}

// Save writes both slots. An empty token or user deletes the slot.
func (r *SQLiteRepository) Save(ctx context.Context, token string, user []byte) error {
	if err := r.put(ctx, SlotToken, []byte(token)); err != nil {
		return err
	}
	return r.put(ctx, SlotUser, user)
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, user []byte) error {
	return r.put(ctx, SlotUser, user)
}

func (r *SQLiteRepository) DeleteToken(ctx context.Context) error {
	return r.delete(ctx, SlotToken)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key IN (?, ?)`, SlotToken, SlotUser)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) put(ctx context.Context, key string, value []byte) error {
	if len(value) == 0 {
		return r.delete(ctx, key)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", key, err)
	}
	return nil
}

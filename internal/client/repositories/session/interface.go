package session

import (
	"context"
)

// Slot names in the metadata table.
const (
	SlotToken = "token"
	SlotUser  = "user"
)

// Snapshot is the raw persisted session. User is nil when not stored.
type Snapshot struct {
	Token string
	User  []byte
}

type Repository interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, token string, user []byte) error
	SaveUser(ctx context.Context, user []byte) error
	DeleteToken(ctx context.Context) error
	Clear(ctx context.Context) error
}

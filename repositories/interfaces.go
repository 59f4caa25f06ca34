package repositories

import (
	"context"
	"errors"

	"github.com/upb/realm-guard/models"
)

// ErrStoreDisabled is returned by the no-op store when no database is configured
var ErrStoreDisabled = errors.New("auth event store is disabled")

// AuthEventRepository persists authorization decisions
type AuthEventRepository interface {
	// Insert stores one event
	Insert(ctx context.Context, event *models.AuthEvent) error

	// ListRecent returns up to limit events, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.AuthEvent, error)
}

// NopAuthEventRepository drops inserts and refuses reads
type NopAuthEventRepository struct{}

func (NopAuthEventRepository) Insert(context.Context, *models.AuthEvent) error {
	return nil
}

func (NopAuthEventRepository) ListRecent(context.Context, int) ([]*models.AuthEvent, error) {
	return nil, ErrStoreDisabled
}

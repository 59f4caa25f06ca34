package postgres

import (
	"context"
	"fmt"

	"github.com/upb/realm-guard/models"
	"github.com/upb/realm-guard/repositories"
	"go.uber.org/zap"
)

// MaxListLimit caps ListRecent
const MaxListLimit = 500

// AuthEventRepository implements the repositories.AuthEventRepository interface
type AuthEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthEventRepository creates a new auth event repository
func NewAuthEventRepository(db *DB, logger *zap.Logger) repositories.AuthEventRepository {
	return &AuthEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new auth event
func (r *AuthEventRepository) Insert(ctx context.Context, event *models.AuthEvent) error {
	query := `
		INSERT INTO auth_events (
			id, request_id, subject, outcome, reason, status,
			method, path, remote_addr, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.RequestID,
		event.Subject,
		event.Outcome,
		event.Reason,
		event.Status,
		event.Method,
		event.Path,
		event.RemoteAddr,
		event.UserAgent,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth event: %w", err)
	}

	r.logger.Debug("auth event inserted",
		zap.String("id", event.ID.String()),
		zap.String("outcome", string(event.Outcome)),
	)
	return nil
}

// ListRecent returns the newest events first
func (r *AuthEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuthEvent, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, request_id, subject, outcome, reason, status,
		       method, path, remote_addr, user_agent, created_at
		FROM auth_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		event := &models.AuthEvent{}
		if err := rows.Scan(
			&event.ID,
			&event.RequestID,
			&event.Subject,
			&event.Outcome,
			&event.Reason,
			&event.Status,
			&event.Method,
			&event.Path,
			&event.RemoteAddr,
			&event.UserAgent,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth events: %w", err)
	}

	if events == nil {
		events = []*models.AuthEvent{}
	}
	return events, nil
}

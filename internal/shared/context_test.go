package shared

import (
	"context"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, RequestID(context.Background()))
	})

	t.Run("explicit id wins", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "chi-id")
		ctx = WithRequestID(ctx, "own-id")
		assert.Equal(t, "own-id", RequestID(ctx))
	})

	t.Run("falls back to chi", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "chi-id")
		assert.Equal(t, "chi-id", RequestID(ctx))
	})
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRequestID())
}

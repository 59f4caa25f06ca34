package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthOutcome is the result of authorizing a request
type AuthOutcome string

const (
	AuthOutcomeAllowed AuthOutcome = "allowed"
	AuthOutcomeDenied  AuthOutcome = "denied"
)

// AuthEvent records one authorization decision on a protected route
type AuthEvent struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	RequestID  string      `json:"request_id" db:"request_id"`
	Subject    string      `json:"subject" db:"subject"`
	Outcome    AuthOutcome `json:"outcome" db:"outcome"`
	Reason     string      `json:"reason,omitempty" db:"reason"`
	Status     int         `json:"status" db:"status"`
	Method     string      `json:"method" db:"method"`
	Path       string      `json:"path" db:"path"`
	RemoteAddr string      `json:"remote_addr" db:"remote_addr"`
	UserAgent  string      `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// NewAuthEvent creates an event with a fresh id and timestamp
func NewAuthEvent(outcome AuthOutcome, status int) *AuthEvent {
	return &AuthEvent{
		ID:        uuid.New(),
		Outcome:   outcome,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// IsDenied reports whether the request was rejected
func (e *AuthEvent) IsDenied() bool {
	return e.Outcome == AuthOutcomeDenied
}

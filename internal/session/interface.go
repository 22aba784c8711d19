package session

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
	ErrConflict = errors.New("session update kept conflicting")
)

// UpdateFunc mutates a session in place. Returning an error aborts the update.
// It may be called more than once for a single Update and must not have side effects.
type UpdateFunc func(s *Session) error

// Store holds active sessions. Every Update on one match id is serialized with
// every other Update on that id.
type Store interface {
	// Create registers a new session. It fails with ErrExists on a duplicate id.
	Create(ctx context.Context, s Session) error
	// Get returns a copy of the session or ErrNotFound.
	Get(ctx context.Context, matchID string) (*Session, error)
	// Update applies fn atomically and returns the stored result.
	Update(ctx context.Context, matchID string, fn UpdateFunc) (*Session, error)
	// Delete removes a session. Missing ids are not an error.
	Delete(ctx context.Context, matchID string) error
	// List returns every session ordered by creation time.
	List(ctx context.Context) ([]Session, error)
}

// Package metastore provides the server-side session metadata storage
// abstraction.
package metastore

import (
	"context"
	"errors"

	"github.com/kvalchek/pictor/internal/models"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound = errors.New("not found")
)

// SessionStore defines the contract for server-side session persistence.
type SessionStore interface {
	// GetSession returns the full state of a session.
	// Returns ErrNotFound when the session does not exist.
	GetSession(ctx context.Context, id string) (*models.SessionState, error)

	// PutSession upserts a session and its complete version list.
	PutSession(ctx context.Context, state *models.SessionState) error

	// AppendVersions adds new versions to an existing session without
	// moving the active pointer. Existing urls are upserted in place.
	// Returns ErrNotFound when the session does not exist.
	AppendVersions(ctx context.Context, id string, versions []*models.VersionEntry) error

	// SetActive makes url the session's active version and returns the
	// updated state. Returns ErrNotFound when the session or the version
	// does not exist.
	SetActive(ctx context.Context, id, url string) (*models.SessionState, error)

	// DeleteSession removes a session and its versions. No error if the
	// session does not exist.
	DeleteSession(ctx context.Context, id string) error

	// SessionCount returns the number of stored sessions.
	SessionCount(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

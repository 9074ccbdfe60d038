package auth

import (
	"errors"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
)

// Resolver turns a raw session token into a validated (user, session)
// pair or a definitive no-session result.
type Resolver struct {
	db *storage.DB
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(db *storage.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve looks up the token and validates expiry. A missing token, an
// unknown token and an expired session all yield (nil, nil) with no error;
// an expired session row is deleted on the way out. Unexpected store
// errors are logged and also yield (nil, nil): resolution is fail-closed
// and never surfaces an error past this boundary.
func (r *Resolver) Resolve(token string) (*models.User, *models.Session) {
	if token == "" {
		return nil, nil
	}

	session, user, err := r.db.GetSessionWithUser(token)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error("session lookup failed", "err", err)
		}
		return nil, nil
	}

	if !session.ExpiresAt.After(time.Now()) {
		// Lazy cleanup of the dead row.
		if err := r.db.DeleteSession(token); err != nil {
			log.Error("failed to delete expired session", "err", err)
		}
		return nil, nil
	}

	return user, session
}

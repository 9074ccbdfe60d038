package auth

import (
	"testing"
	"time"

	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	token, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, token, 64, "32 random bytes, hex encoded")

	other, err := NewSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolveEmptyToken(t *testing.T) {
	r := NewResolver(newTestDB(t))
	user, session := r.Resolve("")
	assert.Nil(t, user)
	assert.Nil(t, session)
}

func TestResolveUnknownToken(t *testing.T) {
	r := NewResolver(newTestDB(t))
	user, session := r.Resolve("never-issued")
	assert.Nil(t, user)
	assert.Nil(t, session)
}

func TestResolveValidSession(t *testing.T) {
	db := newTestDB(t)
	u, err := db.UpsertUser("jane@example.com", "Jane", "")
	require.NoError(t, err)

	token, err := NewSessionToken()
	require.NoError(t, err)
	_, err = db.CreateSession(token, u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	user, session := NewResolver(db).Resolve(token)
	require.NotNil(t, user)
	require.NotNil(t, session)
	assert.Equal(t, u.ID, user.ID)
	assert.Equal(t, u.ID, session.UserID)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestResolveExpiredSessionPurgesRow(t *testing.T) {
	db := newTestDB(t)
	u, err := db.UpsertUser("jane@example.com", "Jane", "")
	require.NoError(t, err)

	_, err = db.CreateSession("expired-token", u.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	r := NewResolver(db)
	user, session := r.Resolve("expired-token")
	assert.Nil(t, user)
	assert.Nil(t, session)

	// The dead row must be gone: the store no longer knows the token, so a
	// second resolve takes the not-found path.
	_, _, err = db.GetSessionWithUser("expired-token")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	user, session = r.Resolve("expired-token")
	assert.Nil(t, user)
	assert.Nil(t, session)
}

func TestSweeperPurgesExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	u, err := db.UpsertUser("jane@example.com", "Jane", "")
	require.NoError(t, err)

	_, err = db.CreateSession("dead", u.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = db.CreateSession("live", u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	s := NewSweeper(db, 10*time.Millisecond)
	s.Start()
	assert.Eventually(t, func() bool {
		_, _, err := db.GetSessionWithUser("dead")
		return err != nil
	}, time.Second, 10*time.Millisecond, "expired session should be swept")
	s.Stop()

	_, _, err = db.GetSessionWithUser("live")
	assert.NoError(t, err, "live sessions survive the sweep")
}

func TestGitHubLoginURL(t *testing.T) {
	g := NewGitHub("client-id", "client-secret", "http://localhost:8080")
	u := g.LoginURL("state-123")
	assert.Contains(t, u, "github.com/login/oauth/authorize")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "redirect_uri=")
}

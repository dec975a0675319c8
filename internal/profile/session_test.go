package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/store/kv"
)

func TestSessionStore_StartGetTouchTerminate(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(kv.NewMemory())

	sess, err := store.StartSession(ctx, "user-1", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, SessionActive, sess.State)

	fetched, ok, err := store.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sess.SessionID, fetched.SessionID)

	lastActivity := fetched.LastActivityAt
	time.Sleep(time.Millisecond)
	require.NoError(t, store.Touch(ctx, sess.SessionID))

	touched, ok, err := store.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, touched.LastActivityAt.After(lastActivity))

	require.NoError(t, store.Terminate(ctx, sess.SessionID))
	_, ok, err = store.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_TouchUnknownSessionFails(t *testing.T) {
	store := NewSessionStore(kv.NewMemory())
	err := store.Touch(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestSessionStore_ActiveForUser(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(kv.NewMemory())

	assert.False(t, store.ActiveForUser(ctx, "user-2"))

	sess, err := store.StartSession(ctx, "user-2", "chat-2")
	require.NoError(t, err)
	assert.True(t, store.ActiveForUser(ctx, "user-2"))

	require.NoError(t, store.Terminate(ctx, sess.SessionID))
	assert.False(t, store.ActiveForUser(ctx, "user-2"))
}

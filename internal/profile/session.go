package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arbengine/fundarb/internal/apperr"
	"github.com/arbengine/fundarb/internal/store/kv"
)

type SessionState string

const (
	SessionActive     SessionState = "Active"
	SessionExpired    SessionState = "Expired"
	SessionTerminated SessionState = "Terminated"
)

// DefaultSessionTTL is the sliding window a session stays alive after its
// last authenticated-command activity.
const DefaultSessionTTL = 24 * time.Hour

type Session struct {
	SessionID      string       `json:"session_id"`
	UserID         string       `json:"user_id"`
	ExternalChatID string       `json:"external_chat_id"`
	State          SessionState `json:"state"`
	StartedAt      time.Time    `json:"started_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

func (s Session) expired(now time.Time) bool {
	return s.State != SessionActive || now.After(s.ExpiresAt)
}

// SessionStore manages Session lifecycle on top of the KV abstraction.
type SessionStore struct {
	store kv.Store
	ttl   time.Duration
}

func NewSessionStore(store kv.Store) *SessionStore {
	return &SessionStore{store: store, ttl: DefaultSessionTTL}
}

// StartSession begins a new Active session for userID, replacing any prior
// session tracked at the same key.
func (s *SessionStore) StartSession(ctx context.Context, userID, externalChatID string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		ExternalChatID: externalChatID,
		State:          SessionActive,
		StartedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, kv.SessionKey(sess.SessionID), sess, kv.PutOptions{TTL: s.ttl}); err != nil {
		return nil, apperr.Internalf("start session", err)
	}
	if err := s.store.Put(ctx, kv.UserSessionKey(userID), sess.SessionID, kv.PutOptions{TTL: s.ttl}); err != nil {
		return nil, apperr.Internalf("index session by user", err)
	}
	return sess, nil
}

// ActiveForUser reports whether userID currently holds a non-expired
// session, used by the distribution candidate build to gate delivery on
// session activity without requiring the caller to track session IDs.
func (s *SessionStore) ActiveForUser(ctx context.Context, userID string) bool {
	var sessionID string
	found, err := s.store.Get(ctx, kv.UserSessionKey(userID), &sessionID)
	if err != nil || !found {
		return false
	}
	_, active, err := s.Get(ctx, sessionID)
	return err == nil && active
}

// Get returns the session if present and not past its expiry. An expired
// or missing session reports found=false rather than an error.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*Session, bool, error) {
	var sess Session
	found, err := s.store.Get(ctx, kv.SessionKey(sessionID), &sess)
	if err != nil {
		return nil, false, apperr.Transient("load session", err)
	}
	if !found || sess.expired(time.Now()) {
		return nil, false, nil
	}
	return &sess, true, nil
}

// Touch extends the session's expiry by the configured TTL. Per the
// activity model only authenticated-command activity should call this —
// passive reads must not slide the expiry.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	sess, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFoundf("session not active", nil)
	}

	now := time.Now()
	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	if err := s.store.Put(ctx, kv.SessionKey(sessionID), sess, kv.PutOptions{TTL: s.ttl}); err != nil {
		return apperr.Internalf("touch session", err)
	}
	if err := s.store.Put(ctx, kv.UserSessionKey(sess.UserID), sessionID, kv.PutOptions{TTL: s.ttl}); err != nil {
		return apperr.Internalf("touch session index", err)
	}
	return nil
}

// Terminate explicitly ends a session (logout), independent of TTL expiry.
func (s *SessionStore) Terminate(ctx context.Context, sessionID string) error {
	sess, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	sess.State = SessionTerminated
	if err := s.store.Delete(ctx, kv.UserSessionKey(sess.UserID)); err != nil {
		return apperr.Internalf("clear session index", err)
	}
	return s.store.Put(ctx, kv.SessionKey(sessionID), sess, kv.PutOptions{TTL: time.Minute})
}

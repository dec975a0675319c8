package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/config"
	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/ratelimit"
	"github.com/arbengine/fundarb/internal/store/kv"
)

// fakeRepo is an in-memory profile.Repo for tests.
type fakeRepo struct {
	mu    sync.Mutex
	byID  map[string]*profile.UserProfile
	byChat map[string]*profile.UserProfile
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*profile.UserProfile{}, byChat: map[string]*profile.UserProfile{}}
}

func (r *fakeRepo) FindByChatID(ctx context.Context, chatID string) (*profile.UserProfile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byChat[chatID]
	return p, ok, nil
}

func (r *fakeRepo) FindByID(ctx context.Context, userID string) (*profile.UserProfile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[userID]
	return p, ok, nil
}

func (r *fakeRepo) Insert(ctx context.Context, p *profile.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.UserID] = &cp
	r.byChat[p.ExternalChatID] = &cp
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, p *profile.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.UserID] = &cp
	return nil
}

func (r *fakeRepo) ListActive(ctx context.Context) ([]*profile.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*profile.UserProfile, 0, len(r.byID))
	for _, p := range r.byID {
		if !p.Archived {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCredentialRepo struct{}

func (fakeCredentialRepo) Put(ctx context.Context, userID, venueID string, ciphertext []byte) error {
	return nil
}
func (fakeCredentialRepo) Get(ctx context.Context, userID, venueID string) ([]byte, bool, error) {
	return nil, false, nil
}

func testServer(t *testing.T) (*Server, *fakeRepo, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	repo := newFakeRepo()
	creds, err := profile.NewCredentialStore(fakeCredentialRepo{}, make([]byte, 32))
	require.NoError(t, err)

	svc := profile.NewService(repo, creds)
	sessions := profile.NewSessionStore(store)
	checker := access.NewChecker()
	limiter := ratelimit.New(store)
	routeTable := ratelimit.NewRouteTable(limiter, config.Default().RateLimitTable)

	deps := Deps{
		Store:      store,
		Sessions:   sessions,
		Profiles:   svc,
		Checker:    checker,
		RouteTable: routeTable,
		Version:    "test",
	}
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, deps), repo, store
}

func TestHealthz_ReportsHealthyWhenKVReachable(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestWebhook_CreatesProfileAndSession(t *testing.T) {
	s, _, _ := testServer(t)

	body, _ := json.Marshal(webhookRequest{ExternalChatID: "chat-1"})
	req := httptest.NewRequest("POST", "/webhook/telegram", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "Free", resp.Tier)
}

func TestAPI_RejectsMissingBearerToken(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/v1/opportunities", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, 401, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authentication", string(body.Error))
	assert.NotEmpty(t, body.ErrorID)
}

func TestAPI_AllowsAuthenticatedRequestWithBasicPermission(t *testing.T) {
	s, repo, store := testServer(t)
	ctx := context.Background()

	prof, err := s.deps.Profiles.UpsertOnFirstContact(ctx, "chat-2")
	require.NoError(t, err)
	_ = repo
	sess, err := s.deps.Sessions.StartSession(ctx, prof.UserID, "chat-2")
	require.NoError(t, err)
	_ = store

	req := httptest.NewRequest("GET", "/api/v1/opportunities", nil)
	req.Header.Set("Authorization", "Bearer "+sess.SessionID)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestAdmin_DeniesNonSuperAdminRole(t *testing.T) {
	s, _, _ := testServer(t)
	ctx := context.Background()

	prof, err := s.deps.Profiles.UpsertOnFirstContact(ctx, "chat-3")
	require.NoError(t, err)
	sess, err := s.deps.Sessions.StartSession(ctx, prof.UserID, "chat-3")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/admin/venues/binance/disable", nil)
	req.Header.Set("Authorization", "Bearer "+sess.SessionID)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arbengine/fundarb/internal/apperr"
)

// Repo is the durable side of user profiles (Postgres: users table).
type Repo interface {
	FindByChatID(ctx context.Context, externalChatID string) (*UserProfile, bool, error)
	FindByID(ctx context.Context, userID string) (*UserProfile, bool, error)
	Insert(ctx context.Context, p *UserProfile) error
	Update(ctx context.Context, p *UserProfile) error

	// ListActive returns every non-archived profile, used by the
	// detection cycle's recipient-candidate build.
	ListActive(ctx context.Context) ([]*UserProfile, error)
}

// Service implements the user-facing profile operations: first-contact
// upsert, preference patches, and credential storage, delegating identity
// persistence to Repo and credentials to CredentialStore.
type Service struct {
	repo        Repo
	credentials *CredentialStore
}

func NewService(repo Repo, credentials *CredentialStore) *Service {
	return &Service{repo: repo, credentials: credentials}
}

// FindByChatID looks up a profile by its external chat identity.
func (s *Service) FindByChatID(ctx context.Context, externalChatID string) (*UserProfile, bool, error) {
	p, ok, err := s.repo.FindByChatID(ctx, externalChatID)
	if err != nil {
		return nil, false, apperr.Internalf("find profile by chat id", err)
	}
	return p, ok, nil
}

// FindByID looks up a profile by its internal user ID, used by request
// authentication paths that only carry a session's UserID.
func (s *Service) FindByID(ctx context.Context, userID string) (*UserProfile, bool, error) {
	p, ok, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, false, apperr.Internalf("find profile by id", err)
	}
	return p, ok, nil
}

// ListActive returns every non-archived profile, the recipient universe a
// detection cycle's distribution pass draws candidates from.
func (s *Service) ListActive(ctx context.Context) ([]*UserProfile, error) {
	profiles, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internalf("list active profiles", err)
	}
	return profiles, nil
}

// UpsertOnFirstContact returns the existing profile for externalChatID, or
// creates a Free-tier profile with default preferences if none exists yet.
func (s *Service) UpsertOnFirstContact(ctx context.Context, externalChatID string) (*UserProfile, error) {
	existing, ok, err := s.FindByChatID(ctx, externalChatID)
	if err != nil {
		return nil, err
	}
	if ok {
		return existing, nil
	}

	now := time.Now()
	p := &UserProfile{
		UserID:         uuid.NewString(),
		ExternalChatID: externalChatID,
		Tier:           TierFree,
		Role:           RoleUser,
		Preferences:    DefaultPreferences(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, apperr.Internalf("create profile", err)
	}
	return p, nil
}

// PreferencesPatch carries the subset of Preferences a caller wants to
// change; zero-value fields are left untouched.
type PreferencesPatch struct {
	TradingFocus         *TradingFocus
	AutomationLevel      *AutomationLevel
	RiskTolerance        *string
	PositionSizingMode   *string
	NotificationChannels []string
	PairAllowList        []string
	PairDenyList         []string
}

// UpdatePreferences applies a partial patch to the user's stored preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch PreferencesPatch) (*UserProfile, error) {
	p, ok, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf("load profile", err)
	}
	if !ok {
		return nil, apperr.NotFoundf("user not found", nil)
	}

	if patch.TradingFocus != nil {
		p.Preferences.TradingFocus = *patch.TradingFocus
	}
	if patch.AutomationLevel != nil {
		p.Preferences.AutomationLevel = *patch.AutomationLevel
	}
	if patch.RiskTolerance != nil {
		p.Preferences.RiskTolerance = *patch.RiskTolerance
	}
	if patch.PositionSizingMode != nil {
		p.Preferences.PositionSizingMode = *patch.PositionSizingMode
	}
	if patch.NotificationChannels != nil {
		p.Preferences.NotificationChannels = patch.NotificationChannels
	}
	if patch.PairAllowList != nil {
		p.Preferences.PairAllowList = patch.PairAllowList
	}
	if patch.PairDenyList != nil {
		p.Preferences.PairDenyList = patch.PairDenyList
	}

	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Internalf("update preferences", err)
	}
	return p, nil
}

// StoreVenueCredential encrypts and persists a user's API key/secret for a
// venue, invalidating any cached adapter for that (user, venue) pair.
func (s *Service) StoreVenueCredential(ctx context.Context, userID, venueID, apiKey, apiSecret string) error {
	return s.credentials.Store(ctx, userID, venueID, apiKey, apiSecret)
}

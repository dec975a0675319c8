package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arbengine/fundarb/internal/apperr"
	"github.com/arbengine/fundarb/internal/detector"
	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/store/kv"
)

// webhookRequest is the inbound shape from the chat platform's webhook
// push: a new or returning user making first contact.
type webhookRequest struct {
	ExternalChatID string `json:"external_chat_id"`
}

type webhookResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Tier      string `json:"tier"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validate("malformed webhook body", err))
		return
	}
	if req.ExternalChatID == "" {
		writeError(w, r, apperr.Validate("external_chat_id is required", nil))
		return
	}

	prof, err := s.deps.Profiles.UpsertOnFirstContact(r.Context(), req.ExternalChatID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := s.deps.Sessions.StartSession(r.Context(), prof.UserID, req.ExternalChatID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info().Str("platform", platform).Str("user_id", prof.UserID).Msg("webhook first contact")
	writeJSON(w, http.StatusOK, webhookResponse{
		SessionID: sess.SessionID,
		UserID:    prof.UserID,
		Tier:      string(prof.Tier),
	})
}

// opportunitySummary is the public-facing projection of detector.Opportunity.
type opportunitySummary struct {
	ID                string  `json:"id"`
	Pair              string  `json:"pair"`
	LongVenue         string  `json:"long_venue"`
	ShortVenue        string  `json:"short_venue"`
	NetRateBps        float64 `json:"net_rate_bps"`
	PriorityScore     float64 `json:"priority_score"`
	CurrentRecipients int     `json:"current_recipients"`
	MaxRecipients     int     `json:"max_recipients"`
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.List(r.Context(), "opp:record:", "", 200)
	if err != nil {
		writeError(w, r, apperr.Internalf("list active opportunities", err))
		return
	}

	out := make([]opportunitySummary, 0, len(list.Keys))
	for _, key := range list.Keys {
		var opp detector.Opportunity
		found, err := s.deps.Store.Get(r.Context(), key, &opp)
		if err != nil || !found {
			continue
		}
		out = append(out, opportunitySummary{
			ID:                opp.ID,
			Pair:              opp.Pair,
			LongVenue:         opp.LongVenue,
			ShortVenue:        opp.ShortVenue,
			NetRateBps:        opp.NetRateDifference.Bps(),
			PriorityScore:     opp.PriorityScore,
			CurrentRecipients: opp.CurrentRecipients,
			MaxRecipients:     opp.MaxRecipients,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	prof, found, err := s.deps.Profiles.FindByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, apperr.NotFoundf("profile not found", nil))
		return
	}

	writeJSON(w, http.StatusOK, prof.Preferences)
}

// preferencesPatchRequest mirrors profile.PreferencesPatch for JSON
// decoding; nil fields are left untouched.
type preferencesPatchRequest struct {
	TradingFocus         *profile.TradingFocus    `json:"trading_focus,omitempty"`
	AutomationLevel      *profile.AutomationLevel `json:"automation_level,omitempty"`
	RiskTolerance        *string                  `json:"risk_tolerance,omitempty"`
	PositionSizingMode   *string                  `json:"position_sizing_mode,omitempty"`
	NotificationChannels []string                 `json:"notification_channels,omitempty"`
	PairAllowList        []string                 `json:"pair_allow_list,omitempty"`
	PairDenyList         []string                 `json:"pair_deny_list,omitempty"`
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req preferencesPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validate("malformed preferences patch", err))
		return
	}

	patch := profile.PreferencesPatch{
		TradingFocus:         req.TradingFocus,
		AutomationLevel:      req.AutomationLevel,
		RiskTolerance:        req.RiskTolerance,
		PositionSizingMode:   req.PositionSizingMode,
		NotificationChannels: req.NotificationChannels,
		PairAllowList:        req.PairAllowList,
		PairDenyList:         req.PairDenyList,
	}

	updated, err := s.deps.Profiles.UpdatePreferences(r.Context(), p.UserID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Preferences)
}

type venueDisableResponse struct {
	VenueID  string `json:"venue_id"`
	Disabled bool   `json:"disabled"`
}

// handleDisableVenue is the SystemAdministration-gated override that
// writes a kv.VenueDisabledKey flag for the venue. Nothing reads that
// flag: the detection cycle and venue.Registry keep polling the venue.
// The handler exercises the RBAC chain; it does not own venue lifecycle.
func (s *Server) handleDisableVenue(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueId"]
	if venueID == "" {
		writeError(w, r, apperr.Validate("venueId is required", nil))
		return
	}

	key := kv.VenueDisabledKey(venueID)
	if err := s.deps.Store.Put(r.Context(), key, true, kv.PutOptions{}); err != nil {
		writeError(w, r, apperr.Internalf("disable venue", err))
		return
	}

	writeJSON(w, http.StatusOK, venueDisableResponse{VenueID: venueID, Disabled: true})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.NotFoundf("no route matches "+r.URL.Path, nil))
}

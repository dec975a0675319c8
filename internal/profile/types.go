// Package profile manages user lifecycle, tier/role, preferences, and
// encrypted venue credentials, plus authenticated session state over the
// KV store.
package profile

import "time"

// Tier is the closed set of subscription tiers a user can hold.
type Tier string

const (
	TierFree       Tier = "Free"
	TierPremiumArb Tier = "PremiumArb"
	TierPremiumTech Tier = "PremiumTech"
	TierHybrid     Tier = "Hybrid"
	TierAutoArb    Tier = "AutoArb"
	TierAutoTech   Tier = "AutoTech"
	TierEnterprise Tier = "Enterprise"
)

// Role is the closed set of administrative roles.
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

// TradingFocus is a user's declared preference for opportunity kinds.
type TradingFocus string

const (
	FocusArbitrage TradingFocus = "Arbitrage"
	FocusTechnical TradingFocus = "Technical"
	FocusHybrid    TradingFocus = "Hybrid"
)

// AutomationLevel controls how much a user has delegated to the system.
type AutomationLevel string

const (
	AutomationManual   AutomationLevel = "Manual"
	AutomationSemiAuto AutomationLevel = "SemiAuto"
	AutomationFullAuto AutomationLevel = "FullAuto"
)

// Preferences is a versioned tagged record so stored JSON can be migrated
// forward as the schema evolves.
type Preferences struct {
	SchemaVersion       int               `json:"schema_version"`
	TradingFocus        TradingFocus      `json:"trading_focus"`
	AutomationLevel     AutomationLevel   `json:"automation_level"`
	RiskTolerance       string            `json:"risk_tolerance"`
	PositionSizingMode  string            `json:"position_sizing_mode"`
	NotificationChannels []string         `json:"notification_channels"`
	PairAllowList       []string          `json:"pair_allow_list,omitempty"`
	PairDenyList        []string          `json:"pair_deny_list,omitempty"`
}

// CurrentPreferencesSchemaVersion is the schema version new preferences are
// created with and the target version migrations converge on.
const CurrentPreferencesSchemaVersion = 2

// DefaultPreferences returns the baseline preferences for a brand-new user.
func DefaultPreferences() Preferences {
	return Preferences{
		SchemaVersion:        CurrentPreferencesSchemaVersion,
		TradingFocus:         FocusArbitrage,
		AutomationLevel:      AutomationManual,
		RiskTolerance:        "moderate",
		PositionSizingMode:   "fixed",
		NotificationChannels: []string{"private"},
	}
}

// UserProfile is the durable identity record for a platform user.
type UserProfile struct {
	UserID         string      `json:"user_id" db:"user_id"`
	ExternalChatID string      `json:"external_chat_id" db:"external_chat_id"`
	Tier           Tier        `json:"tier" db:"tier"`
	Role           Role        `json:"role" db:"role"`
	Preferences    Preferences `json:"preferences" db:"-"`
	PreferencesRaw []byte      `json:"-" db:"preferences_json"`
	BetaExpiresAt  int64       `json:"beta_expires_at" db:"beta_expires_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	Archived       bool        `json:"archived" db:"archived"`
}

// BetaActive reports whether the user currently has time-boxed beta access.
// A zero BetaExpiresAt means no beta access was ever granted.
func (p UserProfile) BetaActive(now time.Time) bool {
	if p.BetaExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() < p.BetaExpiresAt
}

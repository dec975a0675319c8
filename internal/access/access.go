// Package access resolves permissions from a user's tier, role, beta
// status, and feature flags, and gates commands/routes against them.
package access

import (
	"github.com/arbengine/fundarb/internal/profile"
)

// Permission is the closed set of capabilities a user may hold.
type Permission string

const (
	BasicOpportunities      Permission = "BasicOpportunities"
	AdvancedAnalytics       Permission = "AdvancedAnalytics"
	ManualTrading           Permission = "ManualTrading"
	AutomatedTrading        Permission = "AutomatedTrading"
	AIEnhancedOpportunities Permission = "AIEnhancedOpportunities"
	SystemAdministration    Permission = "SystemAdministration"
	BetaAccess              Permission = "BetaAccess"
)

// Set is the resolved permission set for a single user.
type Set map[Permission]bool

func (s Set) Has(p Permission) bool { return s[p] }

// tierPermissions is the static baseline permission set per tier, before
// role and beta overlays are applied.
var tierPermissions = map[profile.Tier][]Permission{
	profile.TierFree:        {BasicOpportunities},
	profile.TierPremiumArb:  {BasicOpportunities, AdvancedAnalytics},
	profile.TierPremiumTech: {BasicOpportunities, AdvancedAnalytics},
	profile.TierHybrid:      {BasicOpportunities, AdvancedAnalytics, ManualTrading},
	profile.TierAutoArb:     {BasicOpportunities, AdvancedAnalytics, ManualTrading, AutomatedTrading},
	profile.TierAutoTech:    {BasicOpportunities, AdvancedAnalytics, ManualTrading, AutomatedTrading},
	profile.TierEnterprise:  {BasicOpportunities, AdvancedAnalytics, ManualTrading, AutomatedTrading, AIEnhancedOpportunities},
}

// FeatureFlags gates experimental permissions independent of tier, e.g. a
// staged rollout of AI-enhanced opportunities to a subset of accounts.
type FeatureFlags struct {
	AIEnhancedOpportunitiesEnabled bool
}

// Resolve computes the full permission set for a user from their tier,
// role, beta status, and any active feature flags.
func Resolve(tier profile.Tier, role profile.Role, betaActive bool, flags FeatureFlags) Set {
	set := Set{}
	for _, p := range tierPermissions[tier] {
		set[p] = true
	}

	if role == profile.RoleAdmin || role == profile.RoleSuperAdmin {
		set[AdvancedAnalytics] = true
	}
	if role == profile.RoleSuperAdmin {
		set[SystemAdministration] = true
	}

	if betaActive {
		set[BetaAccess] = true
		if flags.AIEnhancedOpportunitiesEnabled {
			set[AIEnhancedOpportunities] = true
		}
	}

	return set
}

// Decision is the outcome of a Check call.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Checker evaluates permission checks against a resolved set. It does not
// consult the profile store itself; FallbackOnStoreUnavailable returns the
// set to check against when that store cannot be reached.
type Checker struct{}

func NewChecker() *Checker { return &Checker{} }

// Check evaluates whether set grants permission. SystemAdministration
// always requires SuperAdmin role explicitly, even if somehow present in
// set, to keep admin paths fail-closed against a misconfigured resolver.
func (c *Checker) Check(set Set, role profile.Role, permission Permission) Decision {
	if permission == SystemAdministration && role != profile.RoleSuperAdmin {
		return deny("admin paths require explicit SuperAdmin role")
	}
	if set.Has(permission) {
		return allow()
	}
	return deny("permission not granted for this tier/role/beta combination")
}

// FallbackOnStoreUnavailable returns the permission set used when the
// profile store cannot be reached: BasicOpportunities only, and every
// admin path denied regardless of cached role.
func FallbackOnStoreUnavailable() Set {
	return Set{BasicOpportunities: true}
}

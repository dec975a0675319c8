package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arbengine/fundarb/internal/profile"
)

func TestResolve_FreeTierIsBasicOnly(t *testing.T) {
	set := Resolve(profile.TierFree, profile.RoleUser, false, FeatureFlags{})
	assert.True(t, set.Has(BasicOpportunities))
	assert.False(t, set.Has(AdvancedAnalytics))
	assert.False(t, set.Has(AutomatedTrading))
}

func TestResolve_EnterpriseGetsEverythingExceptAdmin(t *testing.T) {
	set := Resolve(profile.TierEnterprise, profile.RoleUser, false, FeatureFlags{})
	assert.True(t, set.Has(AIEnhancedOpportunities))
	assert.False(t, set.Has(SystemAdministration))
}

func TestResolve_BetaUnlocksAIWhenFlagEnabled(t *testing.T) {
	set := Resolve(profile.TierFree, profile.RoleUser, true, FeatureFlags{AIEnhancedOpportunitiesEnabled: true})
	assert.True(t, set.Has(BetaAccess))
	assert.True(t, set.Has(AIEnhancedOpportunities))
}

func TestChecker_AdminPathRequiresSuperAdminRole(t *testing.T) {
	c := NewChecker()
	set := Set{SystemAdministration: true}

	decision := c.Check(set, profile.RoleAdmin, SystemAdministration)
	assert.False(t, decision.Allowed)

	decision = c.Check(set, profile.RoleSuperAdmin, SystemAdministration)
	assert.True(t, decision.Allowed)
}

func TestFallbackOnStoreUnavailable_IsBasicOnly(t *testing.T) {
	set := FallbackOnStoreUnavailable()
	assert.True(t, set.Has(BasicOpportunities))
	assert.False(t, set.Has(SystemAdministration))
}

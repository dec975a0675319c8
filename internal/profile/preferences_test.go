package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePreferences_MigratesV1ToCurrent(t *testing.T) {
	v1 := map[string]any{
		"trading_focus":         "Arbitrage",
		"automation_level":      "Manual",
		"risk_tolerance":        "low",
		"position_sizing_mode":  "fixed",
		"notification_channels": []string{"private"},
	}
	raw, err := json.Marshal(v1)
	require.NoError(t, err)

	prefs, err := DecodePreferences(raw)
	require.NoError(t, err)

	assert.Equal(t, CurrentPreferencesSchemaVersion, prefs.SchemaVersion)
	assert.Equal(t, FocusArbitrage, prefs.TradingFocus)
	assert.Empty(t, prefs.PairAllowList)
	assert.Empty(t, prefs.PairDenyList)
}

func TestDecodePreferences_EmptyYieldsDefaults(t *testing.T) {
	prefs, err := DecodePreferences(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), prefs)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := DefaultPreferences()
	original.PairAllowList = []string{"BTC-USD-PERP"}

	raw, err := EncodePreferences(original)
	require.NoError(t, err)

	decoded, err := DecodePreferences(raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

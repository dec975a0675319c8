package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFraction_RoundTrip(t *testing.T) {
	r, err := FromFraction(0.0005)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, r.Bps(), 0.0001)
	assert.InDelta(t, 0.0005, r.Float(), 1e-9)
}

func TestFromFraction_RejectsOutOfRange(t *testing.T) {
	_, err := FromFraction(1.5)
	assert.Error(t, err)
	_, err = FromFraction(-1.5)
	assert.Error(t, err)
}

func TestFromBps(t *testing.T) {
	r, err := FromBps(10)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, r.Bps(), 0.0001)
}

func TestRate_Abs(t *testing.T) {
	r, _ := FromFraction(-0.001)
	assert.Equal(t, r.Abs().Bps(), -r.Bps())
}

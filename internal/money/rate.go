// Package money implements a fixed-point rate representation so funding
// rates and fees never suffer float rounding near a comparison threshold.
// All arithmetic inside the detector and distribution engines happens on
// the integer Rate type; floats only appear when parsing an exchange
// response or rendering a human-facing percentage.
package money

import (
	"fmt"
	"math"
)

// Scale is the fixed-point denominator: a Rate of Scale represents a
// fraction of 1.0 (100%). One basis point is Scale/10000 units.
const Scale = 1_000_000

// Rate is a funding-rate or fee fraction stored as parts-per-million so
// comparisons and sums never suffer float rounding near the threshold.
type Rate int64

// FromFraction converts a raw fraction (e.g. 0.0005 for 5bps) into a
// Rate, rejecting anything non-finite or with absolute value over 1.0 as
// malformed.
func FromFraction(f float64) (Rate, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("rate is not finite: %v", f)
	}
	if math.Abs(f) > 1.0 {
		return 0, fmt.Errorf("rate %v exceeds the +/-1.0 sanity bound", f)
	}
	return Rate(math.Round(f * Scale)), nil
}

// FromBps converts a basis-point value (e.g. 10 for 0.10%) into a Rate.
func FromBps(bps float64) (Rate, error) {
	return FromFraction(bps / 10000.0)
}

// Float returns the rate as a raw fraction (0.0005 for 5bps).
func (r Rate) Float() float64 { return float64(r) / Scale }

// Bps returns the rate expressed in basis points.
func (r Rate) Bps() float64 { return float64(r) / 100.0 }

// Abs returns the absolute value.
func (r Rate) Abs() Rate {
	if r < 0 {
		return -r
	}
	return r
}

// Finite reports whether the underlying fraction would still satisfy the
// +/-1.0 sanity bound (useful after arithmetic that could overflow the
// semantic range, e.g. summing two fee legs).
func (r Rate) Finite() bool {
	return r.Abs() <= Rate(Scale)
}

func (r Rate) String() string {
	return fmt.Sprintf("%.4fbps", r.Bps())
}

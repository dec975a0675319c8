package venue

import (
	"fmt"
	"time"
)

// VenueConfig carries the per-venue settings needed to construct an Adapter.
type VenueConfig struct {
	ID        string
	BaseURL   string
	TimeoutMs int
	TakerBps  float64
}

// Registry resolves a monitored venue id into its constructed Adapter.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry constructs every adapter named in cfgs. An unrecognised venue
// id is a configuration error caught at startup rather than at first use.
func NewRegistry(cfgs []VenueConfig) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(cfgs))}
	for _, c := range cfgs {
		timeout := millisOrDefault(c.TimeoutMs)
		var a Adapter
		switch c.ID {
		case "binance":
			a = NewBinance(c.BaseURL, timeout, c.TakerBps)
		case "okx":
			a = NewOKX(c.BaseURL, timeout, c.TakerBps)
		case "kraken":
			a = NewKraken(c.BaseURL, timeout, c.TakerBps)
		case "coinbase":
			a = NewCoinbase(c.BaseURL, timeout, c.TakerBps)
		default:
			return nil, fmt.Errorf("unknown venue id %q", c.ID)
		}
		r.adapters[c.ID] = a
	}
	return r, nil
}

func (r *Registry) Get(venueID string) (Adapter, bool) {
	a, ok := r.adapters[venueID]
	return a, ok
}

func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

func (r *Registry) VenueIDs() []string {
	out := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}

func millisOrDefault(ms int) time.Duration {
	if ms <= 0 {
		return 10 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

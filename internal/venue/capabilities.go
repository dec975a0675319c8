package venue

// Capability enumerates a read-only feature a venue may or may not
// expose. Modeling it as an explicit per-venue set avoids ad-hoc
// "does this exchange support X?" checks scattered through call sites.
type Capability string

const (
	CapFunding   Capability = "funding_rate"
	CapFees      Capability = "taker_fee"
	CapOrderBook Capability = "order_book_top"
)

// CapabilitySet is a per-venue allow-list checked before dispatching a
// request, so an unsupported call fails fast as NotSupported instead of
// reaching the network.
type CapabilitySet map[Capability]bool

func (c CapabilitySet) Has(cap Capability) bool { return c[cap] }

// Standard capability sets for the venues this module ships adapters for.
var (
	binanceCaps = CapabilitySet{CapFunding: true, CapFees: true, CapOrderBook: true}
	okxCaps     = CapabilitySet{CapFunding: true, CapFees: true, CapOrderBook: true}
	krakenCaps  = CapabilitySet{CapFunding: true, CapFees: true, CapOrderBook: false}
	coinbaseCaps = CapabilitySet{CapFunding: false, CapFees: true, CapOrderBook: true}
)

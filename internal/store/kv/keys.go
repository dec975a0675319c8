package kv

import "fmt"

// Key builders for each colon-separated namespace this module writes.
// Centralising them avoids format drift between the writer and reader of
// a given namespace.

func RateFixedKey(scope string, windowFloor int64) string {
	return fmt.Sprintf("rate:%s:%d", scope, windowFloor)
}

func SlidingKey(scope string) string {
	return fmt.Sprintf("sliding:%s", scope)
}

func BucketKey(scope string) string {
	return fmt.Sprintf("bucket:%s", scope)
}

func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// UserSessionKey indexes a user's current session ID, so a recipient build
// can check session activity without an external lookup table.
func UserSessionKey(userID string) string {
	return fmt.Sprintf("session:by-user:%s", userID)
}

func UserProfileKey(userID string) string {
	return fmt.Sprintf("user:profile:%s", userID)
}

// ActiveOpportunityKey holds the recipient-count CAS counter for an
// opportunity (an int), consumed by distribution.TryReserveRecipientSlot.
func ActiveOpportunityKey(opportunityID string) string {
	return fmt.Sprintf("opp:active:%s", opportunityID)
}

// OpportunityRecordKey holds the full detected Opportunity record for the
// duration of its TTL, listed by the opportunities API.
func OpportunityRecordKey(opportunityID string) string {
	return fmt.Sprintf("opp:record:%s", opportunityID)
}

func LedgerKey(userID, date, contextID string) string {
	return fmt.Sprintf("ledger:%s:%s:%s", userID, date, contextID)
}

func LedgerCacheKey(userID, date, contextID string) string {
	return fmt.Sprintf("ledger-cache:%s:%s:%s", userID, date, contextID)
}

func CredentialCacheKey(userID, venueID string) string {
	return fmt.Sprintf("cred-cache:%s:%s", userID, venueID)
}

func DeliveredKey(opportunityID, userID string) string {
	return fmt.Sprintf("delivered:%s:%s", opportunityID, userID)
}

func VenueDisabledKey(venueID string) string {
	return fmt.Sprintf("venue:disabled:%s", venueID)
}

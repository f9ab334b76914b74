package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the canonical wire form of ledger timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// pairIDLayout keeps microseconds so exchanges of one owner in the same
// millisecond still get distinct ids.
const pairIDLayout = "2006-01-02T15:04:05.000000Z"

// TenantSeparator splits the tenant prefix from the rest of a conversation id.
const TenantSeparator = "_"

// Now returns the current time in UTC at millisecond precision, the
// resolution the document store keeps. Paired messages compare timestamps
// for equality, so every stored time goes through here.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// TenantID derives the tenant of a conversation from its id.
func TenantID(conversationID string) string {
	if i := strings.Index(conversationID, TenantSeparator); i >= 0 {
		return conversationID[:i]
	}
	return conversationID
}

// PairMessageID builds the id of one half of a paired write. The id is
// unique per (owner, timestamp, role) at microsecond resolution.
func PairMessageID(ownerID string, ts time.Time, role Role) string {
	suffix := "usr"
	if role == RoleAssistant {
		suffix = "ai"
	}
	return ownerID + ts.UTC().Format(pairIDLayout) + suffix
}

// NewMessageID returns a fresh id for a message written outside a pair.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

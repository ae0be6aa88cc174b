package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// IdempotencyScopePost scopes keys used to post journal entries.
const IdempotencyScopePost = "journal_entries.post"

// MaxIdempotencyKeyLength bounds caller-supplied keys.
const MaxIdempotencyKeyLength = 255

// IdempotencyRecord stores the outcome of a keyed mutation.
type IdempotencyRecord struct {
	CreatedAt      time.Time
	ID             string
	OrganizationID string
	Scope          string
	Key            string
	RequestHash    string
	ResponseBody   []byte
	ResponseStatus int
}

// Completed reports whether the original request stored its response.
func (r *IdempotencyRecord) Completed() bool {
	return r.ResponseStatus != 0 && len(r.ResponseBody) > 0
}

// RequestHash fingerprints the logical request behind a key.
func RequestHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

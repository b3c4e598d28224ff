// Package identity derives the stable identifiers the rest of the engine
// keys on: the job key (primary identity of a posting) and the content hash
// (fingerprint for change detection and alert deduplication).
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// JobKey returns the primary identity of a posting: hex sha256 over
// "source_type:source_identifier:external_id". Source type and identifier
// are case-insensitive and trimmed; the external id is caller-controlled
// and may be case-significant, so it is trimmed but kept verbatim.
func JobKey(sourceType, sourceIdentifier, externalID string) string {
	st := strings.ToLower(strings.TrimSpace(sourceType))
	si := strings.ToLower(strings.TrimSpace(sourceIdentifier))
	eid := strings.TrimSpace(externalID)
	return HashString(st + ":" + si + ":" + eid)
}

// ContentHash fingerprints the fields that make up posting content.
// Hash equality implies the normalized title, description and location are
// equal; case and whitespace-only differences do not change the hash.
// A missing location hashes as the empty string.
func ContentHash(title, description, location string) string {
	return HashString(normalize(title) + "\n" + normalize(description) + "\n" + normalize(location))
}

// HashString returns the hex sha256 of an arbitrary string.
func HashString(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ChecksumExcludedFields are bookkeeping fields that never take part in the
// content hash.
var ChecksumExcludedFields = []string{
	FieldChecksum,
	FieldSynced,
	FieldSyncedAt,
	FieldSyncErrors,
	FieldTargetID,
	FieldSyncLock,
}

// Checksum hashes the canonical JSON form of payload. encoding/json sorts map
// keys at every depth, so equal content always yields the same digest.
func Checksum(payload map[string]any) string {
	content := make(map[string]any, len(payload))
	for key, value := range payload {
		content[key] = value
	}
	for _, field := range ChecksumExcludedFields {
		delete(content, field)
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		// NaN and similar values cannot be encoded but still need a stable digest.
		encoded = []byte(fmtCanonical(content))
	}
	digest := sha256.Sum256(encoded)
	return hex.EncodeToString(digest[:])
}

// WithChecksum returns a copy of payload stamped with its checksum.
func WithChecksum(payload map[string]any) (map[string]any, string) {
	sum := Checksum(payload)
	out := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		out[key] = value
	}
	out[FieldChecksum] = sum
	return out, sum
}

func fmtCanonical(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%v;", key, payload[key])
	}
	return b.String()
}

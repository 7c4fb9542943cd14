package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash is the hex SHA-256 of data. File cache entries are named by it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerdictKey returns the cache key for the verdict on one package version:
// "verdict:" plus the hash of id, version, target and manifest suffix,
// lower-cased. NuGet ids and versions compare case-insensitively; version
// must already be normalized.
func VerdictKey(id, version, target, suffix string) string {
	fields := []string{id, version, target, suffix}
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return "verdict:" + Hash([]byte(strings.Join(fields, "\x00")))
}

package contentstore

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

// NormalizeHash accepts either a CIDv0/v1 string (as the content-addressed
// store's gateway paths use) or a raw hex-encoded hash (as checkpoint
// messages carry one per spec §3) and returns a canonical string safe to
// use as both a cache key and a URL path segment.
//
// Checkpoint hashes are an opaque byte string per spec §3; this function
// never fails on a plain hex string, it only normalizes CIDs when the input
// happens to parse as one.
func NormalizeHash(hash string) (string, error) {
	if hash == "" {
		return "", fmt.Errorf("empty hash")
	}
	if c, err := cid.Decode(hash); err == nil {
		return c.String(), nil
	}
	// Not a CID: treat as the opaque hex hash checkpoint messages carry.
	trimmed := strings.TrimPrefix(strings.ToLower(hash), "0x")
	if _, err := hex.DecodeString(trimmed); err == nil {
		return trimmed, nil
	}
	// Neither a CID nor valid hex — still usable as an opaque cache key as
	// long as it is filesystem/URL safe, which the wire format guarantees.
	return hash, nil
}

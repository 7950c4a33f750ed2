package recovery

import "sort"

// Policy selects the canonical checkpoint hash at a contested height, given
// how many currently-connected nodes voted for each candidate hash and how
// many nodes are connected in total (spec §4.6).
type Policy interface {
	Select(votes map[string]int, totalConnected int) string
}

// MajorityThenLowestHash is the default, and only shipped, Policy: a
// candidate wins outright if a strict majority of connected nodes reported
// it; otherwise the lexicographically smallest candidate hash wins.
type MajorityThenLowestHash struct{}

// Select implements Policy.
func (MajorityThenLowestHash) Select(votes map[string]int, totalConnected int) string {
	if len(votes) == 0 {
		return ""
	}
	if totalConnected > 0 {
		for hash, count := range votes {
			if count*2 > totalConnected {
				return hash
			}
		}
	}
	hashes := make([]string, 0, len(votes))
	for hash := range votes {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes[0]
}

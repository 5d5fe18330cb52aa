// Package fetch keeps the local store in step with the remote API. Every remote
// resource is driven by a Request that deduplicates concurrent triggers and
// applies the TTL refresh policy.
package fetch

import "time"

// NeedsRefresh reports whether a result loaded at loaded is too old at now.
// A nil loaded was never fetched. A nil ttl means fetched once is fetched forever.
func NeedsRefresh(loaded *time.Time, now time.Time, ttl *time.Duration) bool {
	if loaded == nil {
		return true
	}
	if ttl == nil {
		return false
	}
	return now.Sub(*loaded) >= *ttl
}

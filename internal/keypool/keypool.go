// Package keypool rotates API credentials across concurrent requests so that
// rate-limit exposure is spread over the configured key set.
package keypool

import (
	"sync/atomic"

	"inkwell/internal/services"
)

// Pool hands out credentials in round-robin order. Safe for concurrent use;
// the cursor is an atomic counter, so contention can skew distribution but
// never produces an invalid credential.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// New constructs a pool from the supplied credential list.
func New(keys []string) (*Pool, error) {
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			filtered = append(filtered, key)
		}
	}
	if len(filtered) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "keypool", "new", "no API credentials configured", nil)
	}
	return &Pool{keys: filtered}, nil
}

// Next returns the next credential in rotation.
func (p *Pool) Next() string {
	idx := p.cursor.Add(1) - 1
	return p.keys[idx%uint64(len(p.keys))]
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.keys)
}

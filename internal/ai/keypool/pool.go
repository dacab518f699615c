// Package keypool manages a rotating set of provider API credentials.
//
// Selection is uniform random so no single key absorbs all the rate-limit
// exposure. Keys that hit a transient failure (429 etc.) are parked in a
// failed set and skipped; when every key is parked the set is cleared
// optimistically on the next selection, since rate limits are time-boxed and
// may have expired by then.
package keypool

import (
	"math/rand"
	"sync"
)

// Pool holds the credentials for one provider. The failed set is the only
// mutable state shared across requests; all operations are safe for
// concurrent use.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	failed map[string]struct{}
}

// New builds a pool over the given credentials. Duplicate and empty entries
// are dropped.
func New(keys []string) *Pool {
	p := &Pool{failed: make(map[string]struct{})}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		p.keys = append(p.keys, k)
	}
	return p
}

// Size returns the number of configured credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Select picks a healthy credential uniformly at random, never returning
// excluding. If every non-excluded credential is marked failed, the failed
// set is cleared and selection retried once against the full pool. Returns
// false only when the pool holds no usable credential at all, which callers
// must treat as a configuration error.
func (p *Pool) Select(excluding string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.pickLocked(excluding, true); ok {
		return key, true
	}
	// Everything eligible is parked. If nothing would be eligible even with a
	// clean slate, the pool genuinely cannot serve this request.
	if !p.anyBesidesLocked(excluding) {
		return "", false
	}
	p.failed = make(map[string]struct{})
	return p.pickLocked(excluding, true)
}

// MarkFailed parks a credential until the next reset. Idempotent; unknown
// keys are ignored.
func (p *Pool) MarkFailed(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k == key {
			p.failed[key] = struct{}{}
			return
		}
	}
}

// Reset clears the failed set. Exposed for periodic cooldowns.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = make(map[string]struct{})
}

// FailedCount returns how many credentials are currently parked.
func (p *Pool) FailedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

func (p *Pool) pickLocked(excluding string, skipFailed bool) (string, bool) {
	var candidates []string
	for _, k := range p.keys {
		if k == excluding {
			continue
		}
		if skipFailed {
			if _, bad := p.failed[k]; bad {
				continue
			}
		}
		candidates = append(candidates, k)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.Intn(len(candidates))], true
}

func (p *Pool) anyBesidesLocked(excluding string) bool {
	for _, k := range p.keys {
		if k != excluding {
			return true
		}
	}
	return false
}

package app

import (
	"sort"
	"sync"
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// Registry holds the live opportunities. The scan cycle is the only writer;
// API callers and reporters read concurrently.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]domain.Opportunity
	byRoute   map[string]string
	staleness time.Duration
}

// NewRegistry creates a registry that evicts entries older than staleness.
func NewRegistry(staleness time.Duration) *Registry {
	if staleness <= 0 {
		staleness = domain.DefaultStalenessWindow
	}
	return &Registry{
		byID:      make(map[string]domain.Opportunity),
		byRoute:   make(map[string]string),
		staleness: staleness,
	}
}

// SetStaleness changes the eviction window for the next Evict call.
func (r *Registry) SetStaleness(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.staleness = d
	r.mu.Unlock()
}

// Put stores o and drops the older entry for the same route. It reports whether
// an entry was superseded.
func (r *Registry) Put(o domain.Opportunity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := o.RouteKey()
	prev, superseded := r.byRoute[key]
	if superseded && prev != o.ID {
		delete(r.byID, prev)
	}

	r.byID[o.ID] = o
	r.byRoute[key] = o.ID
	return superseded && prev != o.ID
}

// Get returns a copy of the opportunity with id.
func (r *Registry) Get(id string) (domain.Opportunity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	return o, ok
}

// List returns every entry, newest first.
func (r *Registry) List() []domain.Opportunity {
	r.mu.RLock()
	out := make([]domain.Opportunity, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	return out
}

// MarkConsumed replaces the entry with an invalid copy so it is not executed twice.
func (r *Registry) MarkConsumed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return false
	}
	r.byID[id] = o.Consumed()
	return true
}

// Evict removes entries older than the staleness window and returns how many.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, o := range r.byID {
		if o.Age(now) > r.staleness {
			delete(r.byID, id)
			if r.byRoute[o.RouteKey()] == id {
				delete(r.byRoute, o.RouteKey())
			}
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

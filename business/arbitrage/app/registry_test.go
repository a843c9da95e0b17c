package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PutSupersedesSameRoute(t *testing.T) {
	r := NewRegistry(time.Minute)
	t0 := time.Unix(1_700_000_000, 0)

	first := stableOpportunity(t0)
	second := stableOpportunity(t0.Add(time.Second))
	require.NotEqual(t, first.ID, second.ID)

	assert.False(t, r.Put(first))
	assert.True(t, r.Put(second))

	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(first.ID)
	assert.False(t, ok)
	got, ok := r.Get(second.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	r := NewRegistry(time.Minute)
	t0 := time.Unix(1_700_000_000, 0)

	a := stableOpportunity(t0)
	b := stableOpportunity(t0.Add(2 * time.Second))
	b.BuyVenue, b.SellVenue = "balancer", "curve"
	b.ID = "USDC-DAI-balancer-curve-2"

	r.Put(a)
	r.Put(b)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestRegistry_MarkConsumed(t *testing.T) {
	r := NewRegistry(time.Minute)
	opp := stableOpportunity(time.Now())
	r.Put(opp)

	assert.True(t, r.MarkConsumed(opp.ID))
	assert.False(t, r.MarkConsumed("missing"))

	got, ok := r.Get(opp.ID)
	require.True(t, ok)
	assert.False(t, got.Valid)
	assert.True(t, opp.Valid, "caller copy must not change")
}

func TestRegistry_EvictStale(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Unix(1_700_000_000, 0)

	stale := stableOpportunity(now.Add(-61 * time.Second))
	consumedStale := stableOpportunity(now.Add(-90 * time.Second))
	consumedStale.BuyVenue = "balancer"
	consumedStale.ID = "consumed"
	fresh := stableOpportunity(now.Add(-59 * time.Second))
	fresh.SellVenue = "sushiswap"
	fresh.ID = "fresh"

	r.Put(stale)
	r.Put(consumedStale)
	r.MarkConsumed(consumedStale.ID)
	r.Put(fresh)

	assert.Equal(t, 2, r.Evict(now))
	require.Equal(t, 1, r.Len())
	_, ok := r.Get("fresh")
	assert.True(t, ok)

	// the route index must be cleared so a later Put is not reported as superseding
	assert.False(t, r.Put(stableOpportunity(now)))
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.Put(stableOpportunity(now.Add(time.Duration(i))))
			r.Evict(now)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = r.List()
			_ = r.Len()
		}
	}()
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}

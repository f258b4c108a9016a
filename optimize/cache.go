package optimize

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"chanquant/backtest"
)

const NumShards = 128 // Power of 2

// keyPlaces is the rounding applied to float params in cache keys.
const keyPlaces = 4

// Key identifies one simulation: rounded params, lookback and date range.
type Key string

// NewKey builds the canonical key. Floats are rounded through decimal so
// 0.1+0.2 and 0.3 land on the same entry.
func NewKey(p backtest.Params, lookback int, start, end time.Time) Key {
	var b strings.Builder
	for _, f := range []float64{
		p.BuyThreshold, p.SellThreshold, p.TakeProfitPct, p.StopLossPct, p.FeeBps,
	} {
		b.WriteString(decimal.NewFromFloat(f).Round(keyPlaces).String())
		b.WriteByte('|')
	}
	b.WriteString(decimal.NewFromInt(int64(p.MaxHoldingDays)).String())
	b.WriteByte('|')
	if pf := p.PriceFilter; pf.Enabled {
		b.WriteString("pf:")
		b.WriteString(decimal.NewFromFloat(pf.MaxAboveLowPct).Round(keyPlaces).String())
		b.WriteByte(':')
		b.WriteString(decimal.NewFromInt(int64(pf.LowLookback)).String())
		b.WriteByte(':')
		b.WriteString(decimal.NewFromFloat(pf.OverrideMargin).Round(keyPlaces).String())
		b.WriteByte('|')
	}
	b.WriteString(decimal.NewFromInt(int64(lookback)).String())
	b.WriteByte('|')
	b.WriteString(start.UTC().Format("20060102"))
	b.WriteByte('-')
	b.WriteString(end.UTC().Format("20060102"))
	return Key(b.String())
}

// Cache memoizes simulation metrics. Entries are pure functions of their
// key, so concurrent writers of the same key are harmless.
type Cache interface {
	Get(k Key) (backtest.Metrics, bool)
	Put(k Key, m backtest.Metrics)
}

type cacheShard struct {
	mu    sync.Mutex
	items map[Key]backtest.Metrics
}

// ShardedCache spreads keys over 128 mutex-guarded shards.
type ShardedCache struct {
	shards [NumShards]cacheShard
}

// NewShardedCache creates a new sharded cache with pre-allocated shards
func NewShardedCache() *ShardedCache {
	c := &ShardedCache{}
	for i := 0; i < NumShards; i++ {
		c.shards[i].items = make(map[Key]backtest.Metrics, 16)
	}
	return c
}

// fnv1aHash implements FNV-1a hash
func fnv1aHash(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

func (c *ShardedCache) shard(k Key) *cacheShard {
	return &c.shards[fnv1aHash(string(k))&(NumShards-1)]
}

func (c *ShardedCache) Get(k Key) (backtest.Metrics, bool) {
	sh := c.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	m, ok := sh.items[k]
	return m, ok
}

func (c *ShardedCache) Put(k Key, m backtest.Metrics) {
	sh := c.shard(k)
	sh.mu.Lock()
	sh.items[k] = m
	sh.mu.Unlock()
}

// Len counts entries across all shards.
func (c *ShardedCache) Len() int {
	n := 0
	for i := 0; i < NumShards; i++ {
		sh := &c.shards[i]
		sh.mu.Lock()
		n += len(sh.items)
		sh.mu.Unlock()
	}
	return n
}

// Keys returns a sorted snapshot of all keys
func (c *ShardedCache) Keys() []Key {
	out := make([]Key, 0, 256)
	for i := 0; i < NumShards; i++ {
		sh := &c.shards[i]
		sh.mu.Lock()
		for k := range sh.items {
			out = append(out, k)
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NoCache never stores anything.
type NoCache struct{}

func (NoCache) Get(Key) (backtest.Metrics, bool) { return backtest.Metrics{}, false }
func (NoCache) Put(Key, backtest.Metrics)        {}

package configcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/pkg/cache"
)

// ItemMeta is the cached slice of a rule's catalog row that other
// components need without a fresh read (spec.md §5: "the configuration
// cache is the only process-wide mutable resource touched from the hot
// path"). Lifetime is the rule's macro-substituted, parsed, and clamped
// item lifetime, resolved once per invocation by the rule loader stage
// and read from here by the (out-of-scope) item reconciler.
type ItemMeta struct {
	RuleID    int64
	HostID    int64
	State     catalog.State
	LastError string
	Lifetime  time.Duration
}

// Cache is the process-wide configuration cache: a Gate for per-rule
// exclusion, an LRU of ItemMeta keyed by rule id (built on pkg/cache,
// mirroring processor/rule's regex-cache sizing pattern), and read-side
// maps for host macros and named expressions, seeded out of band by
// whatever catalog-sync mechanism a deployment runs (out of scope here
// per spec.md §6).
type Cache struct {
	gate *Gate

	items cache.Cache[ItemMeta]

	mu         sync.RWMutex
	hostMacros map[int64]map[string]string
	namedExpr  map[string][]string
}

// New builds a Cache whose item metadata LRU holds up to itemCacheSize
// entries.
func New(itemCacheSize int) (*Cache, error) {
	if itemCacheSize <= 0 {
		itemCacheSize = 4096
	}
	items, err := cache.NewLRU[ItemMeta](itemCacheSize)
	if err != nil {
		return nil, errors.WrapFatal(err, "Cache", "New", "allocate item cache")
	}
	return &Cache{
		gate:       NewGate(),
		items:      items,
		hostMacros: make(map[int64]map[string]string),
		namedExpr:  make(map[string][]string),
	}, nil
}

// TryLockRule attempts exclusive access to ruleID; see Gate.TryLock.
func (c *Cache) TryLockRule(ruleID int64) bool {
	return c.gate.TryLock(ruleID)
}

// UnlockRule releases ruleID; see Gate.Unlock.
func (c *Cache) UnlockRule(ruleID int64) {
	c.gate.Unlock(ruleID)
}

// GetItem returns the cached metadata for ruleID, if present.
func (c *Cache) GetItem(ruleID int64) (ItemMeta, bool) {
	return c.items.Get(strconv.FormatInt(ruleID, 10))
}

// PutItem seeds or replaces ruleID's cached metadata.
func (c *Cache) PutItem(meta ItemMeta) error {
	_, err := c.items.Set(strconv.FormatInt(meta.RuleID, 10), meta)
	return err
}

// ApplyDiff folds a catalog writeback diff into the cached item
// metadata, mirroring exactly what was persisted (spec.md §4.9: "apply
// the resulting diff to the configuration cache exactly once under the
// rule lock").
func (c *Cache) ApplyDiff(diff catalog.ItemDiff) {
	meta, ok := c.GetItem(diff.RuleID)
	if !ok {
		meta = ItemMeta{RuleID: diff.RuleID}
	}
	if diff.State != nil {
		meta.State = *diff.State
	}
	if diff.Error != nil {
		meta.LastError = *diff.Error
	}
	_ = c.PutItem(meta)
}

// SetLifetime records ruleID's resolved item lifetime, creating the
// cached entry if it doesn't exist yet.
func (c *Cache) SetLifetime(ruleID int64, lifetime time.Duration) {
	meta, ok := c.GetItem(ruleID)
	if !ok {
		meta = ItemMeta{RuleID: ruleID}
	}
	meta.Lifetime = lifetime
	_ = c.PutItem(meta)
}

// PutHostMacros seeds hostID's user macro set, consumed by
// HostMacros/Substitute callers.
func (c *Cache) PutHostMacros(hostID int64, macros map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostMacros[hostID] = macros
}

// HostMacros implements macrosub.MacroSource.
func (c *Cache) HostMacros(_ context.Context, hostID int64) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostMacros[hostID], nil
}

// PutNamedExpression seeds a named global expression's pattern
// alternatives.
func (c *Cache) PutNamedExpression(name string, patterns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namedExpr[name] = patterns
}

// NamedExpressions returns a named expression's raw pattern
// alternatives, if known.
func (c *Cache) NamedExpressions(name string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	patterns, ok := c.namedExpr[name]
	return patterns, ok
}

// Expressions implements macrosub.NamedExpressionSource.
func (c *Cache) Expressions(_ context.Context, name string) ([]string, error) {
	patterns, ok := c.NamedExpressions(name)
	if !ok {
		return nil, errors.ErrUnknownNamedExpression
	}
	return patterns, nil
}

// Package valuesets serves reference picklists through a three tier
// cache: an in-process map, the durable local store, and finally the
// remote CRM. Reads are served from the fastest tier that has the data
// and lower tiers are backfilled on the way out.
package valuesets

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/multierr"

	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// Entry is one picklist option of a value set.
type Entry struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Active bool   `json:"active"`
}

// Storage is the slice of the local store the cache needs.
type Storage interface {
	GetValueSet(ctx context.Context, name string) (json.RawMessage, bool, error)
	PutValueSet(ctx context.Context, name string, data json.RawMessage) error
}

// Fetcher retrieves a value set from the remote CRM.
type Fetcher interface {
	FetchValueSet(ctx context.Context, name string) ([]Entry, error)
}

// CacheParams carries the dependencies for NewCache.
type CacheParams struct {
	Storage Storage
	Fetcher Fetcher
	Log     *logger.Logger
}

// Cache is the tiered value-set cache. Safe for concurrent use.
type Cache struct {
	storage Storage
	fetcher Fetcher
	log     *logger.Logger

	mu  sync.RWMutex
	mem map[string][]Entry
}

// NewCache validates params and builds a Cache with an empty memory tier.
func NewCache(params CacheParams) (*Cache, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valuesets: Storage is required")
	}
	if params.Fetcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valuesets: Fetcher is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valuesets: Log is required")
	}
	return &Cache{
		storage: params.Storage,
		fetcher: params.Fetcher,
		log:     params.Log,
		mem:     make(map[string][]Entry),
	}, nil
}

// Get returns the value set for name, consulting memory, then the local
// store, then the remote. With forceRefresh the memory and store tiers
// are bypassed and the remote copy rewrites both. When the remote is
// unreachable and no tier holds the data, Get degrades to an empty,
// non-nil slice so pickers render instead of crashing.
func (c *Cache) Get(ctx context.Context, name string, forceRefresh bool) ([]Entry, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value set name required")
	}

	if !forceRefresh {
		c.mu.RLock()
		entries, ok := c.mem[name]
		c.mu.RUnlock()
		if ok {
			return entries, nil
		}

		raw, found, err := c.storage.GetValueSet(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			var entries []Entry
			if err := json.Unmarshal(raw, &entries); err == nil {
				c.promote(name, entries)
				return entries, nil
			}
			// A corrupt row falls through to a remote refresh.
			c.log.Warn(c.log.WithField(ctx, "value_set", name), "stored value set is unreadable, refetching")
		}
	}

	entries, err := c.fetchAndStore(ctx, name)
	if err != nil {
		c.log.Warn(c.log.WithFields(ctx, map[string]any{"value_set": name, "error": err.Error()}), "value set fetch failed, serving empty set")
		return []Entry{}, nil
	}
	return entries, nil
}

// fetchAndStore pulls name from the remote and rewrites both cache
// tiers. Unlike Get it reports the fetch failure to the caller.
func (c *Cache) fetchAndStore(ctx context.Context, name string) ([]Entry, error) {
	entries, err := c.fetcher.FetchValueSet(ctx, name)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := c.storage.PutValueSet(ctx, name, raw); err != nil {
			c.log.Error(c.log.WithField(ctx, "value_set", name), "persisting value set failed", err)
		}
	}
	c.promote(name, entries)
	return entries, nil
}

// Refresh forces a remote fetch for name, rewriting both cache tiers.
func (c *Cache) Refresh(ctx context.Context, name string) ([]Entry, error) {
	return c.Get(ctx, name, true)
}

// Warmup fetches the given sets concurrently so the first picker render
// after startup serves current data without blocking on the network.
// Every set is pulled from the remote even when the store tier already
// holds a copy, and per-set failures are collected rather than aborting
// the rest.
func (c *Cache) Warmup(ctx context.Context, names []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := c.fetchAndStore(ctx, name); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "warming value set "+name))
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()
	return errs
}

// Invalidate drops name from the memory tier. The store copy stays, so
// the next Get repopulates memory without a network round trip.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.mem, name)
	c.mu.Unlock()
}

func (c *Cache) promote(name string, entries []Entry) {
	c.mu.Lock()
	c.mem[name] = entries
	c.mu.Unlock()
}

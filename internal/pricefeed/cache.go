package pricefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/rangelab/rangesim/internal/logger"
)

// Cache memoizes resolved series per (pair, window) on disk. Entries carry
// a TTL so a window whose end is still moving eventually refreshes.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log *logger.Logger
}

type cachedSeries struct {
	Source SourceID     `json:"source"`
	Points []PricePoint `json:"points"`
}

// OpenCache opens (or creates) a price cache at dir.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	// Badger's own logging is noisy; errors still surface from operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache: %w", err)
	}

	return &Cache{
		db:  db,
		ttl: ttl,
		log: logger.Component("price-cache"),
	}, nil
}

// Get returns the cached resolution for the request, if present.
func (c *Cache) Get(req Request) (*Resolution, bool) {
	var entry cachedSeries

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(req))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			c.log.WithError(err).Warn("cache read failed")
		}
		return nil, false
	}

	return &Resolution{Prices: entry.Points, Source: entry.Source}, true
}

// Put stores a resolution. Failures are logged, not returned; the cache is
// an optimization, never a correctness dependency.
func (c *Cache) Put(req Request, res *Resolution) {
	data, err := json.Marshal(cachedSeries{Source: res.Source, Points: res.Prices})
	if err != nil {
		c.log.WithError(err).Warn("cache encode failed")
		return
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(cacheKey(req), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(req Request) []byte {
	return []byte(fmt.Sprintf("series|%s|%s|%d|%d",
		req.TokenA, req.TokenB, req.StartTime.UnixMilli(), req.EndTime.UnixMilli()))
}

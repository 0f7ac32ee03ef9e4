// Package dictionary serves the service's sign dictionary from an in-memory
// TTL cache and filters it by name.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
)

const (
	DefaultTTL = 5 * time.Minute

	cacheKey = "dictionary/signs"
)

var ErrInvalidSign = errors.New("dictionary: name and image path are required")

// Entry is one dictionary sign.
type Entry = signclient.DictionaryEntry

// Client is the remote side of the catalog.
type Client interface {
	Dictionary(ctx context.Context) ([]signclient.DictionaryEntry, error)
	AddSign(ctx context.Context, name, imagePath string) (*signclient.StatusResult, error)
}

// Config contains catalog settings.
type Config struct {
	TTL time.Duration
}

// Catalog caches the dictionary. Nothing is written to disk.
type Catalog struct {
	cfg    Config
	client Client
	db     *badger.DB
	group  singleflight.Group
}

// NewCatalog opens the in-memory cache.
func NewCatalog(cfg Config, client Client) (*Catalog, error) {
	if client == nil {
		return nil, fmt.Errorf("dictionary: client is required")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("dictionary: ttl must not be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open cache: %w", err)
	}

	return &Catalog{cfg: cfg, client: client, db: db}, nil
}

// Entries returns the dictionary, fetching it on a cache miss. Concurrent
// misses share one remote call.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	entries, ok, err := c.load()
	if err != nil {
		slog.Warn("dictionary: cache read failed, fetching", "error", err)
	}
	if ok {
		return entries, nil
	}

	v, err, shared := c.group.Do(cacheKey, func() (any, error) {
		fetched, err := c.client.Dictionary(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store(fetched); err != nil {
			slog.Warn("dictionary: cache write failed", "error", err)
		}
		slog.Debug("dictionary: fetched", "signs", len(fetched))
		return fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dictionary: fetch: %w", err)
	}

	fetched := v.([]Entry)
	if shared {
		fetched = append([]Entry(nil), fetched...)
	}
	return fetched, nil
}

// Filter returns entries whose name contains query, ignoring case. A blank
// query returns everything.
func (c *Catalog) Filter(ctx context.Context, query string) ([]Entry, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return filterEntries(entries, query), nil
}

func filterEntries(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(fold.String(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// AddSign registers a sign with the service and invalidates the cache.
func (c *Catalog) AddSign(ctx context.Context, name, imagePath string) (string, error) {
	name = strings.TrimSpace(name)
	imagePath = strings.TrimSpace(imagePath)
	if name == "" || imagePath == "" {
		return "", ErrInvalidSign
	}

	res, err := c.client.AddSign(ctx, name, imagePath)
	if err != nil {
		return "", fmt.Errorf("dictionary: add sign: %w", err)
	}

	if err := c.Invalidate(); err != nil {
		slog.Warn("dictionary: cache invalidation failed", "error", err)
	}

	slog.Info("dictionary: sign added", "name", name, "image_path", imagePath)
	return res.Message, nil
}

// Invalidate drops the cached dictionary.
func (c *Catalog) Invalidate() error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKey))
	})
}

// Close releases the cache.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) load() ([]Entry, bool, error) {
	var entries []Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &entries)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *Catalog) store(entries []Entry) error {
	val, err := msgpack.Marshal(entries)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(cacheKey), val).WithTTL(c.cfg.TTL))
	})
}

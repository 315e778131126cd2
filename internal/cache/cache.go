// Package cache persists search hits across runs in a bbolt database.
//
// Entries are keyed by the search scope (pattern and unit kinds) and the
// absolute file path, and are only served while the file's size and
// modification time still match what was recorded.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/phobologic/grepy/internal/model"
)

var bucketHits = []byte("hits")

// formatVersion is mixed into every scope key. Bump it when rendering
// output changes so stale entries stop matching.
const formatVersion = "1"

// Cache is an open result database.
type Cache struct {
	db  *bbolt.DB
	log zerolog.Logger
}

// Open opens or creates the database at path.
func Open(path string, log zerolog.Logger) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketHits); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketHits, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, log: log}, nil
}

// Close releases the database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Len returns the number of stored entries across all scopes.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketHits).Stats().KeyN
		return nil
	})
	return n, err
}

// Scope is the view of a cache for one pattern and set of unit kinds. It
// satisfies search.ResultCache.
type Scope struct {
	c      *Cache
	prefix string
}

// Scoped returns the entries belonging to pattern and kinds. The order of
// kinds matters because it determines hit order.
func (c *Cache) Scoped(pattern string, kinds []model.UnitKind) *Scope {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	sum := sha256.Sum256([]byte(formatVersion + "\x00" + pattern + "\x00" + strings.Join(names, ",")))
	return &Scope{c: c, prefix: hex.EncodeToString(sum[:16]) + "\x00"}
}

type entry struct {
	Size    int64       `json:"size"`
	ModTime int64       `json:"mod_time"`
	Hits    []model.Hit `json:"hits"`
}

func (s *Scope) key(path string) ([]byte, os.FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, nil, err
	}
	return []byte(s.prefix + abs), fi, nil
}

// Lookup returns the stored hits for path if the file is unchanged.
func (s *Scope) Lookup(path string) ([]model.Hit, bool) {
	key, fi, err := s.key(path)
	if err != nil {
		return nil, false
	}
	var e entry
	var found bool
	err = s.c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHits).Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		s.c.log.Warn().Str("file", path).Err(err).Msg("cache entry unreadable")
		return nil, false
	}
	if !found || e.Size != fi.Size() || e.ModTime != fi.ModTime().UnixNano() {
		s.c.log.Debug().Str("file", path).Msg("cache miss")
		return nil, false
	}
	s.c.log.Debug().Str("file", path).Msg("cache hit")
	if e.Hits == nil {
		e.Hits = []model.Hit{}
	}
	return e.Hits, true
}

// Store records hits for path. Failures are logged and otherwise ignored.
func (s *Scope) Store(path string, hits []model.Hit) {
	key, fi, err := s.key(path)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{Size: fi.Size(), ModTime: fi.ModTime().UnixNano(), Hits: hits})
	if err != nil {
		s.c.log.Warn().Str("file", path).Err(err).Msg("cache encode failed")
		return
	}
	err = s.c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHits).Put(key, data)
	})
	if err != nil {
		s.c.log.Warn().Str("file", path).Err(err).Msg("cache write failed")
	}
}

// Package coldstore implements the optional embedded on-disk cold tier
// named in spec §2/§6: "get, insert, remove, periodic flush". No wire
// format is mandated beyond flat key/value semantics, so the store is a
// single-bucket key→url map over go.etcd.io/bbolt.
//
// Grounded on original_source/src/services/storage/sled.rs's shape
// (a flat embedded KV engine consulted as the lowest tier, configured
// with an aggressive background flush interval rather than an fsync
// per write) translated into bbolt's bucket/transaction idiom: writes
// run with NoSync so Set never pays a per-call fsync, and a ticker
// goroutine calls Sync at cold_store.flush_interval_secs, the same
// role sled.rs's flush_every_ms plays.
package coldstore

import (
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperlinkr/hyperlinkr/internal/config"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

var bucketName = []byte("mappings")

// Store is the bbolt-backed cold tier. It satisfies types.ColdStore.
type Store struct {
	db      *bbolt.DB
	logger  *slog.Logger
	metrics types.MetricsRecorder

	mu        sync.RWMutex
	available bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open opens (creating if absent) the bbolt file at cfg.Path and starts
// its background flush loop. Callers should only call Open when
// cfg.Enabled is true; for the off case they leave Cold nil in
// types.ManagerOptions and internal/cache substitutes its own no-op
// stand-in (see Enabled).
func Open(cfg config.ColdStoreConfig, logger *slog.Logger, metrics types.MetricsRecorder) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "coldstore")

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, types.NewCoreError("coldstore.Open", "", types.KindInternal, err)
	}
	db.NoSync = true

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, types.NewCoreError("coldstore.Open", "", types.KindInternal, err)
	}

	interval := time.Duration(cfg.FlushIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s := &Store{
		db:        db,
		logger:    logger,
		metrics:   metrics,
		available: true,
		stopCh:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop(interval)

	return s, nil
}

func (s *Store) flushLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.db.Sync(); err != nil {
				s.logger.Warn("periodic flush failed", "error", err)
				s.setAvailable(false)
			} else {
				s.setAvailable(true)
			}
		}
	}
}

// Get reads the url stored at code.
func (s *Store) Get(code string) (string, bool, error) {
	var url string
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(code))
		if v != nil {
			url = string(v)
			ok = true
		}
		return nil
	})
	if err != nil {
		s.setAvailable(false)
		return "", false, types.NewCoreError("coldstore.Get", code, types.KindInternal, err)
	}
	return url, ok, nil
}

// Set inserts or overwrites code → url.
func (s *Store) Set(code, url string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(code), []byte(url))
	})
	if err != nil {
		s.setAvailable(false)
		return types.NewCoreError("coldstore.Set", code, types.KindInternal, err)
	}
	return nil
}

// Remove deletes code, if present.
func (s *Store) Remove(code string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(code))
	})
	if err != nil {
		s.setAvailable(false)
		return types.NewCoreError("coldstore.Remove", code, types.KindInternal, err)
	}
	return nil
}

// Flush forces an immediate sync instead of waiting for the ticker.
// Close does not call it; it syncs the database itself.
func (s *Store) Flush() error {
	if err := s.db.Sync(); err != nil {
		s.setAvailable(false)
		return types.NewCoreError("coldstore.Flush", "", types.KindInternal, err)
	}
	return nil
}

// Enabled reports whether this store participates in the get/insert
// cascade at all. A *Store returned by Open is always enabled; the
// disabled case is the zero value Cold left nil in
// types.ManagerOptions, which internal/cache substitutes its own
// no-op stand-in for.
func (s *Store) Enabled() bool { return true }

// Available reports false once any Get, Set, Remove or Flush fails or
// a periodic flush fails, and true again after the next successful
// periodic flush. A cold store
// that is enabled but unavailable still participates in health
// reporting as degraded rather than healthy.
func (s *Store) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

func (s *Store) setAvailable(v bool) {
	s.mu.Lock()
	s.available = v
	s.mu.Unlock()
}

// Close stops the flush loop, performs one final sync, and closes the
// underlying file.
func (s *Store) Close() error {
	close(s.stopCh)
	s.wg.Wait()

	syncErr := s.db.Sync()
	closeErr := s.db.Close()
	if syncErr != nil {
		return types.NewCoreError("coldstore.Close", "", types.KindInternal, syncErr)
	}
	if closeErr != nil {
		return types.NewCoreError("coldstore.Close", "", types.KindInternal, closeErr)
	}
	return nil
}

var _ types.ColdStore = (*Store)(nil)

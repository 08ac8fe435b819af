package registry

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	instanceBucket   = "instances"
	expiryValueBytes = 8

	defaultCleanupInterval = time.Minute
)

var errBucketMissing = errors.New("instance bucket missing")

// BoltStore is a writable instance table backed by BoltDB. Entries carry an
// optional expiry; expired entries are invisible to readers and swept
// periodically by writers.
type BoltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	cleanupInterval time.Duration
	now             func() time.Time
}

// OpenBoltStore opens (creating if needed) the instance table at path.
func OpenBoltStore(path string, cleanupInterval time.Duration) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(instanceBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	store := &BoltStore{
		db:              db,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Register upserts inst. A non-positive ttl keeps the entry until Deregister.
func (b *BoltStore) Register(inst Instance, ttl time.Duration) error {
	inst = sanitizeInstance(inst)
	if err := validateInstance(inst); err != nil {
		return err
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = now.Add(ttl)
	}
	value, err := encodeEntry(inst, expiry)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(instanceBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(inst.ID), value)
	})
}

// Deregister removes the instance with the given id, if present.
func (b *BoltStore) Deregister(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(instanceBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete([]byte(id))
	})
}

// ListInstances returns all live instances.
func (b *BoltStore) ListInstances(context.Context) ([]Instance, error) {
	var out []Instance
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readLive(tx, b.now())
		return err
	})
	return out, err
}

// maybeCleanupExpired removes expired instances on a fixed cadence to avoid unbounded growth.
func (b *BoltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(instanceBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if _, live := decodeEntry(v, now); !live {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

type boltOpener struct {
	path string
}

// NewBolt returns an Opener that opens the instance table read-only for each session.
func NewBolt(path string) Opener {
	return &boltOpener{path: path}
}

func (o *boltOpener) Open(context.Context) (Session, error) {
	if _, err := os.Stat(o.path); err != nil {
		return nil, fmt.Errorf("stat bbolt registry: %w", err)
	}
	db, err := bolt.Open(o.path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bbolt registry: %w", err)
	}
	return &boltSession{db: db}, nil
}

type boltSession struct {
	db *bolt.DB
}

func (s *boltSession) ListInstances(context.Context) ([]Instance, error) {
	var out []Instance
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readLive(tx, time.Now())
		return err
	})
	return out, err
}

func (s *boltSession) Close() error {
	return s.db.Close()
}

func readLive(tx *bolt.Tx, now time.Time) ([]Instance, error) {
	bucket := tx.Bucket([]byte(instanceBucket))
	if bucket == nil {
		return nil, errBucketMissing
	}
	var out []Instance
	err := bucket.ForEach(func(_, v []byte) error {
		if inst, live := decodeEntry(v, now); live {
			out = append(out, inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortInstances(out)
	return out, nil
}

// encodeEntry lays out an entry as an 8-byte big-endian unix expiry (0 = never)
// followed by the JSON instance.
func encodeEntry(inst Instance, expiry time.Time) ([]byte, error) {
	payload, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("marshal instance: %w", err)
	}
	buf := make([]byte, expiryValueBytes, expiryValueBytes+len(payload))
	if !expiry.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	}
	return append(buf, payload...), nil
}

// decodeEntry returns the stored instance and whether it is still live at now.
func decodeEntry(value []byte, now time.Time) (Instance, bool) {
	if len(value) <= expiryValueBytes {
		return Instance{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix > 0 && !time.Unix(unix, 0).After(now) {
		return Instance{}, false
	}
	var inst Instance
	if err := json.Unmarshal(value[expiryValueBytes:], &inst); err != nil {
		return Instance{}, false
	}
	return inst, true
}

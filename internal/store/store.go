// Package store implements the persistence adapter: transactional load and
// store of a single opaque structured value under a backing file, with an
// exclusive write lock held between LoadRW and Store/Abort.
package store

import (
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Status distinguishes the three outcomes LoadRO and LoadRW can report.
type Status int

const (
	// StatusAbsent means the backing file has never been written to.
	StatusAbsent Status = iota
	// StatusUnreadable means the backing file exists but its stored value
	// could not be read back (I/O error or a corrupt bucket).
	StatusUnreadable
	// StatusOK means a value was read successfully.
	StatusOK
)

var (
	dataBucket = []byte("data")
	blobKey    = []byte("blob")
)

// ErrNoWriteLock is returned by Store or Abort when called without a prior
// successful LoadRW.
var ErrNoWriteLock = errors.New("store: no write lock held")

// Adapter wraps a single bbolt database file holding one opaque value.
// bbolt's own single-writer transaction already provides the "at most one
// holder of a write lock per backing object, process-wide" guarantee the
// adapter is required to offer.
type Adapter struct {
	path string
	db   *bolt.DB

	mu     sync.Mutex
	heldTx *bolt.Tx // non-nil between a successful LoadRW and Store/Abort
}

// Open opens (creating if necessary) the bbolt file at path.
func Open(path string) (*Adapter, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Adapter{path: path, db: db}, nil
}

// Path returns the backing file path, mirroring the String()-style
// introspection rclone's Persistent wrapper exposes for its own db handle.
func (a *Adapter) Path() string {
	return a.path
}

// Close releases the underlying database file. Callers must not hold a
// write lock (via LoadRW) when calling Close.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// LoadRO returns a snapshot of the stored value without acquiring the write
// lock.
func (a *Adapter) LoadRO() (Status, []byte, error) {
	var status Status
	var value []byte

	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			status = StatusAbsent
			return nil
		}
		v := b.Get(blobKey)
		if v == nil {
			status = StatusAbsent
			return nil
		}
		value = append([]byte(nil), v...)
		status = StatusOK
		return nil
	})
	if err != nil {
		return StatusUnreadable, nil, err
	}
	return status, value, nil
}

// LoadRW acquires the exclusive write lock and returns the current value.
// The lock is held until a matching call to Store or Abort.
func (a *Adapter) LoadRW() (Status, []byte, error) {
	tx, err := a.db.Begin(true)
	if err != nil {
		return StatusUnreadable, nil, err
	}

	b, err := tx.CreateBucketIfNotExists(dataBucket)
	if err != nil {
		tx.Rollback()
		return StatusUnreadable, nil, err
	}

	v := b.Get(blobKey)

	a.mu.Lock()
	a.heldTx = tx
	a.mu.Unlock()

	if v == nil {
		return StatusAbsent, nil, nil
	}
	return StatusOK, append([]byte(nil), v...), nil
}

// Store atomically replaces the stored value and releases the write lock
// acquired by the preceding LoadRW.
func (a *Adapter) Store(value []byte) error {
	a.mu.Lock()
	tx := a.heldTx
	a.heldTx = nil
	a.mu.Unlock()

	if tx == nil {
		return ErrNoWriteLock
	}

	b, err := tx.CreateBucketIfNotExists(dataBucket)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := b.Put(blobKey, value); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Abort releases the write lock acquired by the preceding LoadRW without
// mutating the stored value.
func (a *Adapter) Abort() error {
	a.mu.Lock()
	tx := a.heldTx
	a.heldTx = nil
	a.mu.Unlock()

	if tx == nil {
		return ErrNoWriteLock
	}
	return tx.Rollback()
}

// Package memory implements the purely in-process ordered-map backend: a
// coarse reader/writer mutex guards the whole database, storages are
// sorted-slice-backed ordered maps, and durability is immediate (every
// commit reports marker 0 — there is nothing to make durable).
//
// Grounded on sharksfin's memory/src/{Database,Storage,Iterator}.h: the
// C++ implementation keeps one std::map<Buffer, shared_ptr<Storage>> for
// the registry and one std::map<Buffer, Buffer> per storage; this package
// keeps the same two-level structure using Go-idiomatic sorted slices
// instead of an ordered tree, since the standard library has no sorted map.
package memory

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	"github.com/tsurugidb/sharksfin-go/pkg/kvlog"
)

func init() {
	kv.RegisterBackend("memory", Open)
}

// Database is the in-process backend's BackendDatabase implementation.
type Database struct {
	lockEnabled bool

	mu       sync.RWMutex
	storages map[string]*Storage
	nextID   atomic.Uint64

	txMu sync.RWMutex

	cbMu      sync.Mutex
	callbacks []kv.DurabilityCallback

	seqMu   sync.RWMutex
	seqs    map[uint64]*sequenceRecord
	nextSeq atomic.Uint64
}

type sequenceRecord struct {
	version uint64
	value   int64
	has     bool
}

// Open constructs a new, empty in-process database. Location is ignored;
// the in-process backend never persists anything.
func Open(opts kv.DatabaseOptions) (kv.BackendDatabase, error) {
	db := &Database{
		lockEnabled: opts.LockEnabled(),
		storages:    map[string]*Storage{},
		seqs:        map[uint64]*sequenceRecord{},
	}
	return db, nil
}

// ImplID returns this backend's short name.
func (d *Database) ImplID() string { return "memory" }

// Close is a no-op beyond the state transition the façade already enforces:
// there is no background work or file descriptor to release.
func (d *Database) Close() kv.StatusCode {
	return kv.StatusOK
}

// Dispose drops all in-memory state.
func (d *Database) Dispose() {
	d.mu.Lock()
	d.storages = nil
	d.mu.Unlock()
}

// RegisterDurabilityCallback records cb; it will be invoked with marker 0
// on every commit, since the in-process backend has no real durability.
func (d *Database) RegisterDurabilityCallback(cb kv.DurabilityCallback) {
	d.cbMu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.cbMu.Unlock()
}

func (d *Database) notifyDurable(marker int64) {
	d.cbMu.Lock()
	cbs := append([]kv.DurabilityCallback(nil), d.callbacks...)
	d.cbMu.Unlock()
	for _, cb := range cbs {
		cb(marker)
	}
}

// ImplGetDatastore has nothing to expose; the in-process backend has no
// underlying native handle.
func (d *Database) ImplGetDatastore() any { return nil }

// PrintDiagnostics writes a one-line summary of registered storages.
func (d *Database) PrintDiagnostics(w io.Writer) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fmt.Fprintf(w, "memory backend: %d storage(s)\n", len(d.storages))
	for name, s := range d.storages {
		fmt.Fprintf(w, "  %q id=%d entries=%d\n", name, s.id, s.size())
	}
}

// BeginTransaction acquires the coarse database lock: exclusively for any
// writable transaction type, shared for READ_ONLY, unless locking was
// disabled via DatabaseOptions.Lock=false.
func (d *Database) BeginTransaction(opts kv.TransactionOptions) (kv.Session, kv.StatusCode) {
	sess := &Session{db: d, writable: opts.Type != kv.TransactionTypeReadOnly, id: uuid.NewString()}
	if d.lockEnabled {
		if sess.writable {
			d.txMu.Lock()
		} else {
			d.txMu.RLock()
		}
		sess.locked = true
	}
	kvlog.WithTransaction(sess.id)
	return sess, kv.StatusOK
}

func (d *Database) unlock(writable bool) {
	if !d.lockEnabled {
		return
	}
	if writable {
		d.txMu.Unlock()
	} else {
		d.txMu.RUnlock()
	}
}

func (d *Database) storageKey(name []byte) string { return string(name) }

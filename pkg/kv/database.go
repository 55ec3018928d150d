// Package kv is the uniform façade over the three transactional key-value
// backends (pkg/kv/memory, pkg/kv/lsm, pkg/kv/cc). It owns the handle
// model, the transaction state machine, the scan cursor protocol, and the
// status taxonomy; backends plug in through the BackendDatabase /
// BackendStorage / Session / Cursor interfaces in backend.go.
package kv

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tsurugidb/sharksfin-go/pkg/kvlog"
	"github.com/tsurugidb/sharksfin-go/pkg/kvmetrics"
)

// lifecycle tags the coarse open/closed/disposed state shared by every
// public handle type.
type lifecycle struct {
	state atomic.Int32
}

const (
	lifeOpen int32 = iota
	lifeClosed
	lifeDisposed
)

func (l *lifecycle) checkLive() StatusCode {
	switch l.state.Load() {
	case lifeOpen:
		return StatusOK
	case lifeClosed:
		return StatusErrInvalidState
	default:
		return StatusErrInvalidState
	}
}

func (l *lifecycle) close() bool {
	return l.state.CompareAndSwap(lifeOpen, lifeClosed)
}

func (l *lifecycle) dispose() {
	l.state.Store(lifeDisposed)
}

// BackendFactory opens a new BackendDatabase instance for the given
// options. Each backend package (memory/lsm/cc) registers one.
type BackendFactory func(opts DatabaseOptions) (BackendDatabase, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]BackendFactory{}
)

// RegisterBackend makes a backend implementation available to Open under
// the given implementation id. Backend packages call this from an init().
func RegisterBackend(implID string, factory BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[implID] = factory
}

// Database is the process-scoped façade over one open backend database
//. It is a concrete pointer, not an opaque handle table entry:
// Go's garbage collector removes the raw-pointer-safety motivation the
// original handle-table design existed for (see DESIGN.md).
type Database struct {
	lifecycle
	backend BackendDatabase
	opts    DatabaseOptions

	mu       sync.RWMutex
	storages map[string]*Storage

	txSeq atomic.Int64

	txMu sync.Mutex
	txs  map[*TransactionControl]struct{}

	cbMu      sync.Mutex
	callbacks []DurabilityCallback

	log zerolog.Logger
}

// Open opens a database using the backend registered under implID. Known
// ids: "memory", "lsm", "cc".
func Open(implID string, opts DatabaseOptions) (*Database, error) {
	factoriesMu.RLock()
	factory, ok := factories[implID]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kv: unknown backend %q", implID)
	}
	backend, err := factory(opts)
	if err != nil {
		return nil, err
	}
	if opts.Perf {
		kvmetrics.Register()
	}
	db := &Database{backend: backend, opts: opts, storages: map[string]*Storage{}, txs: map[*TransactionControl]struct{}{}, log: kvlog.WithDatabase(implID)}
	db.state.Store(lifeOpen)
	db.log.Info().Msg("database opened")
	return db, nil
}

// Close stops accepting new transactions and storage mutations: every
// transaction still open at the time of the call is implicitly aborted
// (with a logged diagnostic), and all storage handles are released.
// Metadata remains addressable until Dispose.
func (d *Database) Close() StatusCode {
	if !d.close() {
		return StatusOK
	}

	d.txMu.Lock()
	live := make([]*TransactionControl, 0, len(d.txs))
	for tc := range d.txs {
		live = append(live, tc)
	}
	d.txMu.Unlock()
	for _, tc := range live {
		d.log.Warn().Str("tx", tc.GetInfo()).Msg("aborting outstanding transaction on database close")
		tc.Abort(true)
	}

	d.mu.Lock()
	d.storages = map[string]*Storage{}
	d.mu.Unlock()

	d.log.Info().Msg("database closed")
	return d.backend.Close()
}

func (d *Database) registerTx(tc *TransactionControl) {
	d.txMu.Lock()
	d.txs[tc] = struct{}{}
	d.txMu.Unlock()
}

func (d *Database) unregisterTx(tc *TransactionControl) {
	d.txMu.Lock()
	delete(d.txs, tc)
	d.txMu.Unlock()
}

// Dispose releases the backend database. Must be called after Close.
func (d *Database) Dispose() {
	d.dispose()
	d.backend.Dispose()
}

// RegisterDurabilityCallback adds cb to this database's durability
// callback registry. Order of invocation among callbacks is
// unspecified.
func (d *Database) RegisterDurabilityCallback(cb DurabilityCallback) StatusCode {
	if s := d.checkLive(); s != StatusOK {
		return s
	}
	d.cbMu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.cbMu.Unlock()
	d.backend.RegisterDurabilityCallback(func(marker int64) {
		kvmetrics.DurabilityMarker.WithLabelValues(d.backend.ImplID()).Set(float64(marker))
		cb(marker)
	})
	return StatusOK
}

// ImplementationID returns the backend's short name.
func (d *Database) ImplementationID() string {
	return d.backend.ImplID()
}

// ImplementationGetDatastore exposes the backend-native handle, or nil.
func (d *Database) ImplementationGetDatastore() any {
	return d.backend.ImplGetDatastore()
}

// PrintDiagnostics writes a backend-defined diagnostic dump to w.
func (d *Database) PrintDiagnostics(w io.Writer) {
	d.backend.PrintDiagnostics(w)
}

func (d *Database) nextTxSeq() int64 {
	return d.txSeq.Add(1)
}

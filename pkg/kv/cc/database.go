package cc

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	"github.com/tsurugidb/sharksfin-go/pkg/kvlog"
)

func init() {
	kv.RegisterBackend("cc", Open)
}

// Database is the CC backend's BackendDatabase implementation: a
// single-node raft group (no real TCP transport is bound —
// raft.NewInmemTransport stands in, since there is no cross-process
// replication to do here) fronting the FSM in fsm.go.
type Database struct {
	raft *raft.Raft
	fsm  *FSM

	logStore    raft.LogStore
	stableStore raft.StableStore

	// maintenance gates BeginTransaction against writable transaction
	// types: when set, only READ_ONLY transactions are accepted, so an
	// operator can bring a node up read-only without risking a write
	// that a maintenance pass isn't expecting.
	maintenance bool

	preserves *preserveManager

	mu       sync.RWMutex
	storages map[string]*Storage

	cbMu      sync.Mutex
	callbacks []kv.DurabilityCallback
	watchOnce sync.Once
	watchDone chan struct{}
}

// Open bootstraps a single-node raft group persisting its log and stable
// stores under opts.Location.
func Open(opts kv.DatabaseOptions) (kv.BackendDatabase, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("cc: DatabaseOptions.Location is required")
	}

	fsm := newFSM()

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID("cc-local")
	if opts.EpochDuration > 0 {
		config.HeartbeatTimeout = time.Duration(opts.EpochDuration) * time.Millisecond
		config.ElectionTimeout = config.HeartbeatTimeout
	}
	config.Logger = nil // keep raft's own chatter off the façade's zerolog stream

	_, transport := raft.NewInmemTransport(raft.ServerAddress(config.LocalID))

	snapshotStore, err := raft.NewFileSnapshotStore(opts.Location, 2, io.Discard)
	if err != nil {
		return nil, fmt.Errorf("cc: snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(opts.Location, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("cc: log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(opts.Location, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("cc: stable store: %w", err)
	}

	r, err := raft.NewRaft(config, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("cc: new raft: %w", err)
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapshotStore)
	if err != nil {
		return nil, fmt.Errorf("cc: check existing state: %w", err)
	}
	if !hasState {
		future := r.BootstrapCluster(raft.Configuration{
			Servers: []raft.Server{{ID: config.LocalID, Address: transport.LocalAddr()}},
		})
		if err := future.Error(); err != nil {
			return nil, fmt.Errorf("cc: bootstrap: %w", err)
		}
	}

	// wait for this single node to become leader; trivial in a one-node group.
	select {
	case <-r.LeaderCh():
	case <-time.After(5 * time.Second):
	}

	d := &Database{
		raft:        r,
		fsm:         fsm,
		logStore:    logStore,
		stableStore: stableStore,
		maintenance: opts.StartupMode == "maintenance",
		preserves:   newPreserveManager(),
		storages:    map[string]*Storage{},
		watchDone:   make(chan struct{}),
	}
	d.hydrateStorages()
	go d.watchDurability()
	return d, nil
}

func (d *Database) hydrateStorages() {
	d.fsm.mu.RLock()
	defer d.fsm.mu.RUnlock()
	for name, st := range d.fsm.storages {
		d.storages[name] = &Storage{db: d, name: st.name, id: st.id}
	}
}

// watchDurability polls raft's applied index and fans it out to
// registered durability callbacks.
func (d *Database) watchDurability() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var last uint64
	for {
		select {
		case <-d.watchDone:
			return
		case <-ticker.C:
			applied := d.raft.AppliedIndex()
			if applied > last {
				last = applied
				d.cbMu.Lock()
				cbs := append([]kv.DurabilityCallback(nil), d.callbacks...)
				d.cbMu.Unlock()
				for _, cb := range cbs {
					cb(int64(applied))
				}
			}
		}
	}
}

func (d *Database) ImplID() string { return "cc" }

func (d *Database) Close() kv.StatusCode {
	d.watchOnce.Do(func() { close(d.watchDone) })
	return kv.StatusOK
}

func (d *Database) Dispose() {
	if err := d.raft.Shutdown().Error(); err != nil {
		kvlog.Errorf("cc raft shutdown: %v", err)
	}
}

func (d *Database) RegisterDurabilityCallback(cb kv.DurabilityCallback) {
	d.cbMu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.cbMu.Unlock()
}

func (d *Database) ImplGetDatastore() any { return d.raft }

func (d *Database) PrintDiagnostics(w io.Writer) {
	stats := d.raft.Stats()
	fmt.Fprintf(w, "cc backend: state=%s last_log_index=%d applied_index=%d\n", stats["state"], d.raft.LastIndex(), d.raft.AppliedIndex())
}

// apply submits cmd to the raft log and waits for it to commit, returning
// the FSM's validation/application result plus the log index it committed
// at — the durability marker this backend reports through
// RegisterDurabilityCallback and CommitWithCallback.
func (d *Database) apply(cmd Command) (*applyResult, uint64, kv.StatusCode) {
	data, err := marshalCommand(cmd)
	if err != nil {
		return nil, 0, kv.StatusErrIOError
	}
	future := d.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return nil, 0, kv.StatusErrIOError
	}
	res, ok := future.Response().(*applyResult)
	if !ok {
		return nil, future.Index(), kv.StatusErrUnknown
	}
	return res, future.Index(), res.status
}

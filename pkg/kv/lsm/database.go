package lsm

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	"github.com/tsurugidb/sharksfin-go/pkg/kvlog"
)

func init() {
	kv.RegisterBackend("lsm", Open)
}

var (
	bucketMeta      = []byte("__meta__")
	bucketData      = []byte("__data__")
	bucketSequences = []byte("__sequences__")
	bucketBlobs     = []byte("__blobs__")
)

// Database is the LSM backend's BackendDatabase implementation, backed by
// one bbolt file under DatabaseOptions.Location.
type Database struct {
	db *bolt.DB

	mu       sync.RWMutex
	storages map[string]*Storage

	cbMu      sync.Mutex
	callbacks []kv.DurabilityCallback
}

// Open opens (creating if absent) the bbolt file at opts.Location/kv.db
// and ensures its top-level buckets exist.
func Open(opts kv.DatabaseOptions) (kv.BackendDatabase, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("lsm: DatabaseOptions.Location is required")
	}
	path := filepath.Join(opts.Location, "kv.db")
	boltDB, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("lsm: open %s: %w", path, err)
	}

	d := &Database{db: boltDB, storages: map[string]*Storage{}}

	err = boltDB.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketData, bucketSequences, bucketBlobs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		boltDB.Close()
		return nil, fmt.Errorf("lsm: initialize buckets: %w", err)
	}

	if err := d.loadStorages(); err != nil {
		boltDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) loadStorages() error {
	return d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return meta.ForEach(func(name, raw []byte) error {
			id, payload := decodeMeta(raw)
			d.storages[string(name)] = &Storage{name: append([]byte(nil), name...), id: id, payload: payload}
			return nil
		})
	})
}

func (d *Database) ImplID() string { return "lsm" }

func (d *Database) Close() kv.StatusCode {
	if err := d.db.Sync(); err != nil {
		kvlog.Errorf("lsm sync on close: %v", err)
	}
	return kv.StatusOK
}

func (d *Database) Dispose() {
	if err := d.db.Close(); err != nil {
		kvlog.Errorf("lsm close: %v", err)
	}
}

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

func (d *Database) ImplGetDatastore() any { return d.db }

func (d *Database) PrintDiagnostics(w io.Writer) {
	stats := d.db.Stats()
	fmt.Fprintf(w, "lsm backend: path=%s tx=%d freePageN=%d\n", d.db.Path(), stats.TxN, stats.FreePageN)
}

func decodeMeta(raw []byte) (id uint64, payload []byte) {
	if len(raw) < 8 {
		return 0, nil
	}
	id = beUint64(raw[:8])
	payload = append([]byte(nil), raw[8:]...)
	return id, payload
}

func encodeMeta(id uint64, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	putBeUint64(out[:8], id)
	copy(out[8:], payload)
	return out
}

package lsm

import (
	bolt "go.etcd.io/bbolt"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// Storage is a named bucket nested under __data__, with its id/payload
// mirrored in __meta__ for fast registry lookups without opening the data
// bucket.
type Storage struct {
	name    []byte
	id      uint64
	payload []byte
}

func (s *Storage) Name() []byte           { return s.name }
func (s *Storage) ID() uint64             { return s.id }
func (s *Storage) GetOptions() kv.StorageOptions {
	return kv.StorageOptions{StorageID: s.id, Payload: append([]byte(nil), s.payload...)}
}
func (s *Storage) SetOptions(opts kv.StorageOptions) { s.payload = append([]byte(nil), opts.Payload...) }

// CreateStorage registers a new storage: a meta record plus an empty
// nested bucket under __data__.
func (d *Database) CreateStorage(name []byte, opts kv.StorageOptions) (kv.BackendStorage, kv.StatusCode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := string(name)
	if _, exists := d.storages[key]; exists {
		return nil, kv.StatusAlreadyExists
	}

	var id uint64
	err := d.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		data := tx.Bucket(bucketData)
		blobs := tx.Bucket(bucketBlobs)
		if _, err := data.CreateBucketIfNotExists(name); err != nil {
			return err
		}
		if _, err := blobs.CreateBucketIfNotExists(name); err != nil {
			return err
		}
		id = opts.StorageID
		if id == 0 {
			seq, err := meta.NextSequence()
			if err != nil {
				return err
			}
			id = seq
		}
		return meta.Put(name, encodeMeta(id, opts.Payload))
	})
	if err != nil {
		return nil, kv.StatusErrIOError
	}

	s := &Storage{name: append([]byte(nil), name...), id: id, payload: opts.Payload}
	d.storages[key] = s
	return s, kv.StatusOK
}

// GetStorage looks up a storage by name from the in-memory registry cache,
// which is populated at Open and kept current by Create/Delete.
func (d *Database) GetStorage(name []byte) (kv.BackendStorage, kv.StatusCode) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.storages[string(name)]
	if !ok {
		return nil, kv.StatusNotFound
	}
	return s, kv.StatusOK
}

// ListStorages returns every registered storage name.
func (d *Database) ListStorages() [][]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([][]byte, 0, len(d.storages))
	for _, s := range d.storages {
		out = append(out, s.name)
	}
	return out
}

// DeleteStorage removes the storage's bucket and meta record.
func (d *Database) DeleteStorage(bs kv.BackendStorage) kv.StatusCode {
	s, ok := bs.(*Storage)
	if !ok {
		return kv.StatusErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := string(s.name)
	if _, exists := d.storages[key]; !exists {
		return kv.StatusNotFound
	}
	err := d.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		data := tx.Bucket(bucketData)
		blobs := tx.Bucket(bucketBlobs)
		if err := meta.Delete(s.name); err != nil {
			return err
		}
		if err := blobs.DeleteBucket(s.name); err != nil {
			return err
		}
		return data.DeleteBucket(s.name)
	})
	if err != nil {
		return kv.StatusErrIOError
	}
	delete(d.storages, key)
	return kv.StatusOK
}

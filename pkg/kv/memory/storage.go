package memory

import (
	"sort"
	"sync"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// Storage is an ordered in-memory map, grounded on sharksfin's
// memory::Storage (a std::map<Buffer, Buffer>). Go has no sorted map in
// the standard library, so entries are held in a plain map for O(1)
// point access alongside a sorted key slice maintained by insertion, kept
// in lockstep under mu.
type Storage struct {
	name    []byte
	id      uint64
	payload []byte

	mu     sync.RWMutex
	keys   []string
	values map[string][]byte
	blobs  map[string][]uint64
}

func newStorage(name []byte, id uint64, payload []byte) *Storage {
	return &Storage{name: append([]byte(nil), name...), id: id, payload: payload, values: map[string][]byte{}, blobs: map[string][]uint64{}}
}

func (s *Storage) Name() []byte { return s.name }
func (s *Storage) ID() uint64   { return s.id }

func (s *Storage) GetOptions() kv.StorageOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return kv.StorageOptions{StorageID: s.id, Payload: append([]byte(nil), s.payload...)}
}

func (s *Storage) SetOptions(opts kv.StorageOptions) {
	s.mu.Lock()
	s.payload = append([]byte(nil), opts.Payload...)
	s.mu.Unlock()
}

func (s *Storage) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// insertIndex returns the index of key in the sorted key slice and whether
// it is already present.
func (s *Storage) insertIndex(key string) (int, bool) {
	i := sort.SearchStrings(s.keys, key)
	return i, i < len(s.keys) && s.keys[i] == key
}

func (s *Storage) get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// getBlobIDs returns the BLOB reference identifiers recorded against key by
// the most recent put_with_blobs, if any.
func (s *Storage) getBlobIDs(key string) ([]uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.values[key]; !ok {
		return nil, false
	}
	return append([]uint64(nil), s.blobs[key]...), true
}

func (s *Storage) create(key string, value []byte, blobIDs []uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, exists := s.insertIndex(key)
	if exists {
		return false
	}
	s.keys = append(s.keys, "")
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = key
	s.values[key] = append([]byte(nil), value...)
	s.setBlobIDsLocked(key, blobIDs)
	return true
}

func (s *Storage) update(key string, value []byte, blobIDs []uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return false
	}
	s.values[key] = append([]byte(nil), value...)
	s.setBlobIDsLocked(key, blobIDs)
	return true
}

// setBlobIDsLocked records blobIDs as belonging to key's current value, or
// clears any prior association when blobIDs is empty. Callers must hold mu.
func (s *Storage) setBlobIDsLocked(key string, blobIDs []uint64) {
	if len(blobIDs) == 0 {
		delete(s.blobs, key)
		return
	}
	s.blobs[key] = append([]uint64(nil), blobIDs...)
}

func (s *Storage) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, exists := s.insertIndex(key)
	if !exists {
		return false
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	delete(s.values, key)
	delete(s.blobs, key)
	return true
}

// snapshotKeys returns a copy of the current sorted key slice, safe to
// range over independent of further mutation.
func (s *Storage) snapshotKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// CreateStorage registers a new named storage.
func (d *Database) CreateStorage(name []byte, opts kv.StorageOptions) (kv.BackendStorage, kv.StatusCode) {
	key := d.storageKey(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.storages[key]; exists {
		return nil, kv.StatusAlreadyExists
	}
	id := opts.StorageID
	if id == 0 {
		id = d.nextID.Add(1)
	}
	s := newStorage(name, id, opts.Payload)
	d.storages[key] = s
	return s, kv.StatusOK
}

// GetStorage looks up a storage by name.
func (d *Database) GetStorage(name []byte) (kv.BackendStorage, kv.StatusCode) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.storages[d.storageKey(name)]
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

// DeleteStorage removes a storage from the registry.
func (d *Database) DeleteStorage(bs kv.BackendStorage) kv.StatusCode {
	s, ok := bs.(*Storage)
	if !ok {
		return kv.StatusErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := d.storageKey(s.name)
	if _, exists := d.storages[key]; !exists {
		return kv.StatusNotFound
	}
	delete(d.storages, key)
	return kv.StatusOK
}

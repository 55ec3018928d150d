package cc

import "github.com/tsurugidb/sharksfin-go/pkg/kv"

// Storage is a façade-facing handle onto one FSM-managed storage.
// GetOptions reads the payload from the FSM, falling back to the locally
// cached copy only when the FSM no longer has the storage; all mutation
// goes through the raft log via Database.apply.
type Storage struct {
	db      *Database
	name    []byte
	id      uint64
	payload []byte
}

func (s *Storage) Name() []byte { return s.name }
func (s *Storage) ID() uint64   { return s.id }

func (s *Storage) GetOptions() kv.StorageOptions {
	s.db.fsm.mu.RLock()
	defer s.db.fsm.mu.RUnlock()
	if st, ok := s.db.fsm.storages[string(s.name)]; ok {
		return kv.StorageOptions{StorageID: st.id, Payload: append([]byte(nil), st.payload...)}
	}
	return kv.StorageOptions{StorageID: s.id, Payload: s.payload}
}

func (s *Storage) SetOptions(opts kv.StorageOptions) {
	cmd, err := newCommand(cmdSetOptions, struct {
		Name    []byte `json:"name"`
		Payload []byte `json:"payload"`
	}{Name: s.name, Payload: opts.Payload})
	if err != nil {
		return
	}
	if _, _, status := s.db.apply(cmd); status == kv.StatusOK {
		s.payload = opts.Payload
	}
}

// CreateStorage registers a new storage via the raft log.
func (d *Database) CreateStorage(name []byte, opts kv.StorageOptions) (kv.BackendStorage, kv.StatusCode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := string(name)
	if _, exists := d.storages[key]; exists {
		return nil, kv.StatusAlreadyExists
	}

	cmd, err := newCommand(cmdCreateStorage, struct {
		Name    []byte `json:"name"`
		ID      uint64 `json:"id"`
		Payload []byte `json:"payload"`
	}{Name: name, ID: opts.StorageID, Payload: opts.Payload})
	if err != nil {
		return nil, kv.StatusErrIOError
	}

	if _, _, status := d.apply(cmd); status != kv.StatusOK {
		return nil, status
	}

	d.fsm.mu.RLock()
	st := d.fsm.storages[key]
	d.fsm.mu.RUnlock()

	s := &Storage{db: d, name: st.name, id: st.id, payload: st.payload}
	d.storages[key] = s
	return s, kv.StatusOK
}

// GetStorage looks up a registered storage by name.
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

// DeleteStorage removes a storage via the raft log.
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

	cmd, err := newCommand(cmdDeleteStorage, s.name)
	if err != nil {
		return kv.StatusErrIOError
	}
	if _, _, status := d.apply(cmd); status != kv.StatusOK {
		return status
	}
	delete(d.storages, key)
	return kv.StatusOK
}

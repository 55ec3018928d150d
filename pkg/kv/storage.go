package kv

import "sync/atomic"

// Storage is the façade's handle onto a named ordered map.
// Disposal is non-transitive: disposing a Storage handle never deletes the
// underlying storage, only StorageDelete does.
type Storage struct {
	db      *Database
	backend BackendStorage
	name    []byte

	deleted  atomic.Bool
	disposed atomic.Bool
}

// Name returns the storage's registered name.
func (s *Storage) Name() []byte {
	return s.name
}

// ID returns the storage's backend-assigned identifier.
func (s *Storage) ID() uint64 {
	return s.backend.ID()
}

func (s *Storage) checkUsable() StatusCode {
	if s.disposed.Load() {
		return StatusErrInvalidState
	}
	if s.deleted.Load() {
		return StatusErrInvalidState
	}
	return StatusOK
}

// StorageCreate registers a new storage under name.
func (d *Database) StorageCreate(name []byte, opts StorageOptions) (*Storage, StatusCode) {
	if s := d.checkLive(); s != StatusOK {
		return nil, s
	}
	key := string(name)
	d.mu.Lock()
	if _, exists := d.storages[key]; exists {
		d.mu.Unlock()
		return nil, StatusAlreadyExists
	}
	backendStorage, status := d.backend.CreateStorage(name, opts)
	if status != StatusOK {
		d.mu.Unlock()
		return nil, status
	}
	s := &Storage{db: d, backend: backendStorage, name: append([]byte(nil), name...)}
	d.storages[key] = s
	d.mu.Unlock()
	return s, StatusOK
}

// StorageGet looks up a storage by name, consulting the
// registry's name→handle cache before falling through to the backend.
func (d *Database) StorageGet(name []byte) (*Storage, StatusCode) {
	if s := d.checkLive(); s != StatusOK {
		return nil, s
	}
	key := string(name)
	d.mu.RLock()
	if s, ok := d.storages[key]; ok {
		d.mu.RUnlock()
		return s, StatusOK
	}
	d.mu.RUnlock()

	backendStorage, status := d.backend.GetStorage(name)
	if status != StatusOK {
		return nil, status
	}
	s := &Storage{db: d, backend: backendStorage, name: append([]byte(nil), name...)}
	d.mu.Lock()
	if existing, ok := d.storages[key]; ok {
		d.mu.Unlock()
		return existing, StatusOK
	}
	d.storages[key] = s
	d.mu.Unlock()
	return s, StatusOK
}

// StorageList returns the registered storage names, in unspecified order.
func (d *Database) StorageList() ([][]byte, StatusCode) {
	if s := d.checkLive(); s != StatusOK {
		return nil, s
	}
	return d.backend.ListStorages(), StatusOK
}

// StorageDelete purges s's metadata and invalidates its handle. The handle
// object itself must still be explicitly Disposed.
func (d *Database) StorageDelete(s *Storage) StatusCode {
	if st := d.checkLive(); st != StatusOK {
		return st
	}
	if st := s.checkUsable(); st != StatusOK {
		return st
	}
	status := d.backend.DeleteStorage(s.backend)
	if status != StatusOK {
		return status
	}
	s.deleted.Store(true)
	d.mu.Lock()
	delete(d.storages, string(s.name))
	d.mu.Unlock()
	return StatusOK
}

// StorageDispose releases the handle object. A no-op on the underlying
// storage record; see StorageDelete to actually remove the storage.
func (d *Database) StorageDispose(s *Storage) {
	s.disposed.Store(true)
}

// StorageGetOptions reads s's current opaque payload and id.
func (d *Database) StorageGetOptions(s *Storage) (StorageOptions, StatusCode) {
	if st := s.checkUsable(); st != StatusOK {
		return StorageOptions{}, st
	}
	return s.backend.GetOptions(), StatusOK
}

// StorageSetOptions replaces s's opaque payload.
func (d *Database) StorageSetOptions(s *Storage, opts StorageOptions) StatusCode {
	if st := s.checkUsable(); st != StatusOK {
		return st
	}
	s.backend.SetOptions(opts)
	return StatusOK
}

// The TransactionHandle-scoped storage lifecycle below lets code already
// holding a *TxHandle (an ExecCallback, say) manage storages without
// reaching back out to the *Database that opened the transaction. They are
// the same registry operations as the Database-scoped ones above — storage
// metadata isn't part of any backend's write-set or session state, so
// there's nothing transactional about running them "inside" a transaction
// beyond handle-liveness checking. The mutating ones (create, delete,
// set-options) are rejected with StatusErrInvalidArgument on a strand handle.

// StorageCreate is the transaction-scoped form of Database.StorageCreate.
func (h *TxHandle) StorageCreate(name []byte, opts StorageOptions) (*Storage, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return nil, s
	}
	if h.isStrand {
		return nil, StatusErrInvalidArgument
	}
	return h.control.db.StorageCreate(name, opts)
}

// StorageGet is the transaction-scoped form of Database.StorageGet.
func (h *TxHandle) StorageGet(name []byte) (*Storage, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return nil, s
	}
	return h.control.db.StorageGet(name)
}

// StorageList is the transaction-scoped form of Database.StorageList.
func (h *TxHandle) StorageList() ([][]byte, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return nil, s
	}
	return h.control.db.StorageList()
}

// StorageDelete is the transaction-scoped form of Database.StorageDelete.
func (h *TxHandle) StorageDelete(s *Storage) StatusCode {
	if st := h.checkUsable(); st != StatusOK {
		return st
	}
	if h.isStrand {
		return StatusErrInvalidArgument
	}
	return h.control.db.StorageDelete(s)
}

// StorageGetOptions is the transaction-scoped form of Database.StorageGetOptions.
func (h *TxHandle) StorageGetOptions(s *Storage) (StorageOptions, StatusCode) {
	if st := h.checkUsable(); st != StatusOK {
		return StorageOptions{}, st
	}
	return h.control.db.StorageGetOptions(s)
}

// StorageSetOptions is the transaction-scoped form of Database.StorageSetOptions.
func (h *TxHandle) StorageSetOptions(s *Storage, opts StorageOptions) StatusCode {
	if st := h.checkUsable(); st != StatusOK {
		return st
	}
	if h.isStrand {
		return StatusErrInvalidArgument
	}
	return h.control.db.StorageSetOptions(s, opts)
}

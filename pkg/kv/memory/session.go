package memory

import (
	"sync/atomic"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// Session is the in-process backend's transaction view. The entire
// database-wide coarse mutex is acquired at BeginTransaction and released
// at Commit/Abort, so content operations here need no additional locking
// beyond what each Storage already does for its own map.
type Session struct {
	db       *Database
	writable bool
	id       string
	strand   bool

	locked   bool
	finished atomic.Bool

	lastResult kv.CallResult
}

// IsStrand reports whether this session was obtained via Acquire rather
// than being the transaction's primary session.
func (s *Session) IsStrand() bool { return s.strand }

func (s *Session) CheckExist(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	st := storage.(*Storage)
	if _, ok := st.get(string(key)); ok {
		return kv.StatusOK
	}
	return kv.StatusNotFound
}

func (s *Session) Get(storage kv.BackendStorage, key []byte) ([]byte, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	st := storage.(*Storage)
	v, ok := st.get(string(key))
	if !ok {
		return nil, kv.StatusNotFound
	}
	return v, kv.StatusOK
}

func (s *Session) Put(storage kv.BackendStorage, key, value []byte, op kv.PutOperation, blobIDs []uint64) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	st := storage.(*Storage)
	switch op {
	case kv.PutCreate:
		if !st.create(string(key), value, blobIDs) {
			return kv.StatusAlreadyExists
		}
		return kv.StatusOK
	case kv.PutUpdate:
		if !st.update(string(key), value, blobIDs) {
			return kv.StatusNotFound
		}
		return kv.StatusOK
	default:
		if !st.create(string(key), value, blobIDs) {
			st.update(string(key), value, blobIDs)
		}
		return kv.StatusOK
	}
}

// GetBlobIDs returns the BLOB reference identifiers most recently recorded
// against key via put_with_blobs, or nil if key has none.
func (s *Session) GetBlobIDs(storage kv.BackendStorage, key []byte) ([]uint64, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	st := storage.(*Storage)
	ids, ok := st.getBlobIDs(string(key))
	if !ok {
		return nil, kv.StatusNotFound
	}
	return ids, kv.StatusOK
}

func (s *Session) Delete(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	st := storage.(*Storage)
	if !st.remove(string(key)) {
		return kv.StatusNotFound
	}
	return kv.StatusOK
}

func (s *Session) Scan(storage kv.BackendStorage, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) (kv.Cursor, kv.StatusCode) {
	st := storage.(*Storage)
	return newCursor(st, beginKey, beginKind, endKey, endKind, limit, reverse), kv.StatusOK
}

// Acquire returns an additional strand handle. The in-process backend
// needs no per-strand state: every strand observes the same RLock-guarded
// snapshot as the primary session.
func (s *Session) Acquire() (kv.Session, kv.StatusCode) {
	return &Session{db: s.db, writable: false, id: s.id, strand: true}, kv.StatusOK
}

// Release is a no-op: strands share the parent's lock, released once when
// the primary session commits, aborts, or disposes.
func (s *Session) Release() {}

func (s *Session) Commit(async bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusErrInactiveTransaction
	}
	if s.locked {
		s.db.unlock(s.writable)
	}
	s.db.notifyDurable(0)
	return kv.StatusOK
}

func (s *Session) CommitWithCallback(cb kv.CommitCallback) bool {
	status := s.Commit(false)
	cb(status, kv.ErrorOK, 0)
	return true
}

func (s *Session) Abort(rollback bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusOK
	}
	if s.locked {
		s.db.unlock(s.writable)
	}
	return kv.StatusOK
}

func (s *Session) CheckState() kv.TransactionStateKind {
	if s.finished.Load() {
		return kv.TxStateAborted
	}
	return kv.TxStateStarted
}

func (s *Session) InfoID() string { return s.id }

func (s *Session) RecentCallResult() kv.CallResult { return s.lastResult }

func (s *Session) Dispose() {
	if s.finished.CompareAndSwap(false, true) && s.locked {
		s.db.unlock(s.writable)
	}
}

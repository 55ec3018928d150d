package lsm

import (
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// Session wraps one manual bbolt transaction. A writable Session holds the
// single bbolt writer slot for its whole lifetime, serializing all writers;
// a read-only Session holds one of bbolt's concurrent MVCC snapshot
// transactions.
type Session struct {
	db       *Database
	tx       *bolt.Tx
	writable bool
	strand   bool

	finished atomic.Bool
	last     kv.CallResult
}

// BeginTransaction opens a manual bbolt transaction matching the
// requested type: LONG/SHORT map to a writable transaction, READ_ONLY to a
// read-only snapshot.
func (d *Database) BeginTransaction(opts kv.TransactionOptions) (kv.Session, kv.StatusCode) {
	writable := opts.Type != kv.TransactionTypeReadOnly
	tx, err := d.db.Begin(writable)
	if err != nil {
		return nil, kv.StatusErrResourceLimitReached
	}
	return &Session{db: d, tx: tx, writable: writable}, kv.StatusOK
}

func (s *Session) IsStrand() bool { return s.strand }

func (s *Session) bucket(storage kv.BackendStorage) *bolt.Bucket {
	st := storage.(*Storage)
	data := s.tx.Bucket(bucketData)
	if data == nil {
		return nil
	}
	return data.Bucket(st.name)
}

func (s *Session) blobBucket(storage kv.BackendStorage) *bolt.Bucket {
	st := storage.(*Storage)
	blobs := s.tx.Bucket(bucketBlobs)
	if blobs == nil {
		return nil
	}
	return blobs.Bucket(st.name)
}

func (s *Session) CheckExist(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	b := s.bucket(storage)
	if b == nil || b.Get(key) == nil {
		return kv.StatusNotFound
	}
	return kv.StatusOK
}

func (s *Session) Get(storage kv.BackendStorage, key []byte) ([]byte, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	b := s.bucket(storage)
	if b == nil {
		return nil, kv.StatusNotFound
	}
	v := b.Get(key)
	if v == nil {
		return nil, kv.StatusNotFound
	}
	out := make([]byte, len(v))
	copy(out, v) // bbolt values are only valid for the life of the transaction
	return out, kv.StatusOK
}

func (s *Session) Put(storage kv.BackendStorage, key, value []byte, op kv.PutOperation, blobIDs []uint64) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	if !s.writable {
		return kv.StatusErrIllegalOperation
	}
	b := s.bucket(storage)
	if b == nil {
		return kv.StatusNotFound
	}
	exists := b.Get(key) != nil
	switch op {
	case kv.PutCreate:
		if exists {
			return kv.StatusAlreadyExists
		}
	case kv.PutUpdate:
		if !exists {
			return kv.StatusNotFound
		}
	}
	if err := b.Put(key, value); err != nil {
		return kv.StatusErrIOError
	}
	if blobs := s.blobBucket(storage); blobs != nil {
		if len(blobIDs) == 0 {
			_ = blobs.Delete(key)
		} else if err := blobs.Put(key, encodeBlobIDs(blobIDs)); err != nil {
			return kv.StatusErrIOError
		}
	}
	return kv.StatusOK
}

// GetBlobIDs returns the BLOB reference identifiers most recently recorded
// against key via put_with_blobs, or nil if key has none.
func (s *Session) GetBlobIDs(storage kv.BackendStorage, key []byte) ([]uint64, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	b := s.bucket(storage)
	if b == nil || b.Get(key) == nil {
		return nil, kv.StatusNotFound
	}
	blobs := s.blobBucket(storage)
	if blobs == nil {
		return nil, kv.StatusOK
	}
	return decodeBlobIDs(blobs.Get(key)), kv.StatusOK
}

func (s *Session) Delete(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	if !s.writable {
		return kv.StatusErrIllegalOperation
	}
	b := s.bucket(storage)
	if b == nil || b.Get(key) == nil {
		return kv.StatusNotFound
	}
	if err := b.Delete(key); err != nil {
		return kv.StatusErrIOError
	}
	if blobs := s.blobBucket(storage); blobs != nil {
		_ = blobs.Delete(key)
	}
	return kv.StatusOK
}

func (s *Session) Scan(storage kv.BackendStorage, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) (kv.Cursor, kv.StatusCode) {
	b := s.bucket(storage)
	if b == nil {
		return nil, kv.StatusNotFound
	}
	return newCursor(b, beginKey, beginKind, endKey, endKind, limit, reverse), kv.StatusOK
}

// Acquire opens an independent read-only bbolt transaction sharing the
// same database, standing in for a cloned strand session. Each strand observes its own MVCC snapshot rather
// than literally sharing the parent's, a simplification acceptable because
// READ_ONLY transactions never observe their own writes.
func (s *Session) Acquire() (kv.Session, kv.StatusCode) {
	tx, err := s.db.db.Begin(false)
	if err != nil {
		return nil, kv.StatusErrResourceLimitReached
	}
	return &Session{db: s.db, tx: tx, writable: false, strand: true}, kv.StatusOK
}

// Release ends a strand's snapshot transaction. No-op on the primary
// session, released instead via Commit/Abort/Dispose.
func (s *Session) Release() {
	if !s.strand {
		return
	}
	if s.finished.CompareAndSwap(false, true) {
		_ = s.tx.Rollback()
	}
}

func (s *Session) Commit(async bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusErrInactiveTransaction
	}
	if !s.writable {
		_ = s.tx.Rollback()
		return kv.StatusOK
	}
	if err := s.tx.Commit(); err != nil {
		return kv.StatusErrAbortedRetryable
	}
	s.db.notifyDurable(int64(s.tx.ID()))
	return kv.StatusOK
}

func (s *Session) CommitWithCallback(cb kv.CommitCallback) bool {
	status := s.Commit(false)
	errCode := kv.ErrorOK
	if status != kv.StatusOK {
		errCode = kv.ErrorGeneric
	}
	cb(status, errCode, int64(s.tx.ID()))
	return true
}

func (s *Session) Abort(rollback bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusOK
	}
	_ = s.tx.Rollback()
	return kv.StatusOK
}

func (s *Session) CheckState() kv.TransactionStateKind {
	if s.finished.Load() {
		return kv.TxStateAborted
	}
	return kv.TxStateStarted
}

func (s *Session) InfoID() string { return "" }

func (s *Session) RecentCallResult() kv.CallResult { return s.last }

func (s *Session) Dispose() {
	if s.finished.CompareAndSwap(false, true) {
		_ = s.tx.Rollback()
	}
}

package kv

import "io"

// DurabilityCallback is invoked with a monotonically non-decreasing marker
// whenever a commit the backend was tracking becomes durable.
type DurabilityCallback func(marker int64)

// CommitCallback is invoked exactly once per commit_with_callback call.
type CommitCallback func(status StatusCode, errCode ErrorCode, marker int64)

// BackendDatabase is the capability surface a backend implements for a
// single open database. The façade's Database type is a thin,
// state-checked wrapper around one BackendDatabase.
type BackendDatabase interface {
	// ImplID returns the backend's short name, e.g. "memory", "lsm", "cc".
	ImplID() string

	// Close stops accepting new work but keeps metadata addressable.
	Close() StatusCode

	// Dispose releases all backend resources. Called at most once, after Close.
	Dispose()

	// RegisterDurabilityCallback adds cb to the database's callback list.
	// Callbacks are never unregistered individually; they are dropped at Dispose.
	RegisterDurabilityCallback(cb DurabilityCallback)

	CreateStorage(name []byte, opts StorageOptions) (BackendStorage, StatusCode)
	GetStorage(name []byte) (BackendStorage, StatusCode)
	ListStorages() [][]byte
	DeleteStorage(s BackendStorage) StatusCode

	BeginTransaction(opts TransactionOptions) (Session, StatusCode)

	SequenceCreate() uint64
	SequencePut(sess Session, id uint64, version uint64, value int64) StatusCode
	SequenceGet(id uint64) (version uint64, value int64, status StatusCode)
	SequenceDelete(id uint64) StatusCode

	// ImplGetDatastore exposes a backend-native handle for diagnostics or
	// advanced callers; nil when the backend has nothing to offer.
	ImplGetDatastore() any

	PrintDiagnostics(w io.Writer)
}

// BackendStorage is a backend-owned storage record.
type BackendStorage interface {
	Name() []byte
	ID() uint64
	GetOptions() StorageOptions
	SetOptions(opts StorageOptions)
}

// Session is a backend-owned transaction view: the control handle's
// underlying session, or one of its strands. A strand is itself a Session
// with IsStrand() true and write operations rejected.
type Session interface {
	IsStrand() bool

	CheckExist(storage BackendStorage, key []byte) StatusCode
	Get(storage BackendStorage, key []byte) (value []byte, status StatusCode)
	Put(storage BackendStorage, key, value []byte, op PutOperation, blobIDs []uint64) StatusCode
	// GetBlobIDs returns the BLOB reference identifiers most recently
	// recorded against key via Put's blobIDs, or StatusNotFound if key has
	// no value at all. A value written without blobIDs returns (nil, OK).
	GetBlobIDs(storage BackendStorage, key []byte) (blobIDs []uint64, status StatusCode)
	Delete(storage BackendStorage, key []byte) StatusCode

	Scan(storage BackendStorage, beginKey []byte, beginKind EndPointKind, endKey []byte, endKind EndPointKind, limit int, reverse bool) (Cursor, StatusCode)

	// Acquire returns an additional strand session for a READ_ONLY
	// transaction. Non-read-only backends may return the receiver itself.
	Acquire() (Session, StatusCode)
	// Release relinquishes a strand obtained from Acquire. No-op on the
	// primary (borrowed) session.
	Release()

	Commit(async bool) StatusCode
	CommitWithCallback(cb CommitCallback) (immediate bool)
	Abort(rollback bool) StatusCode
	CheckState() TransactionStateKind
	InfoID() string
	RecentCallResult() CallResult
	Dispose()
}

// Cursor is a backend-owned scan cursor.
type Cursor interface {
	// Next advances the cursor. Returns StatusOK with a valid Key/Value,
	// StatusNotFound at end of range, or a retryable/transient code.
	Next() StatusCode
	Key() []byte
	Value() []byte
	Close()
}

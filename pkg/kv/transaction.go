package kv

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tsurugidb/sharksfin-go/pkg/kvmetrics"
)

// TransactionControl is the lifecycle view of one transaction: begin,
// commit, abort, state inspection, disposal. Content
// operations go through a TxHandle borrowed or acquired from it.
type TransactionControl struct {
	db      *Database
	session Session
	options TransactionOptions
	id      int64

	state atomic.Int32 // TransactionStateKind

	primary *TxHandle

	strandsMu sync.Mutex
	strands   map[*TxHandle]struct{}

	lastResult atomic.Pointer[CallResult]

	disposed atomic.Bool
}

// TxHandle is a data-or-strand view of a transaction used for content
// operations. The primary handle is obtained via
// BorrowHandle; additional strand handles (read-only transactions only)
// via AcquireHandle.
type TxHandle struct {
	control  *TransactionControl
	session  Session
	isStrand bool
	released atomic.Bool
}

// TransactionBegin acquires a session and returns its control handle. LONG
// transactions may not observe StateStarted immediately; content operations
// issued too early return StatusPremature.
func (d *Database) TransactionBegin(opts TransactionOptions) (*TransactionControl, StatusCode) {
	if s := d.checkLive(); s != StatusOK {
		return nil, s
	}
	session, status := d.backend.BeginTransaction(opts)
	if status != StatusOK {
		return nil, status
	}
	tc := &TransactionControl{
		db:      d,
		session: session,
		options: opts,
		id:      d.nextTxSeq(),
		strands: map[*TxHandle]struct{}{},
	}
	tc.state.Store(int32(TxStateStarted))
	tc.primary = &TxHandle{control: tc, session: session}
	d.registerTx(tc)
	kvmetrics.ActiveTransactions.WithLabelValues(d.backend.ImplID()).Inc()
	return tc, StatusOK
}

// BorrowHandle returns the transaction's primary data handle. Always the
// same *TxHandle for a given control handle.
func (tc *TransactionControl) BorrowHandle() (*TxHandle, StatusCode) {
	if s := tc.checkActive(); s != StatusOK {
		return nil, s
	}
	return tc.primary, StatusOK
}

// AcquireHandle returns a new strand data handle for parallel reads under a
// READ_ONLY transaction; other transaction types may return the primary
// handle.
func (tc *TransactionControl) AcquireHandle() (*TxHandle, StatusCode) {
	if s := tc.checkActive(); s != StatusOK {
		return nil, s
	}
	if tc.options.Type != TransactionTypeReadOnly {
		return tc.primary, StatusOK
	}
	strandSession, status := tc.session.Acquire()
	if status != StatusOK {
		return nil, status
	}
	h := &TxHandle{control: tc, session: strandSession, isStrand: true}
	tc.strandsMu.Lock()
	tc.strands[h] = struct{}{}
	tc.strandsMu.Unlock()
	return h, StatusOK
}

// ReleaseHandle releases a strand handle. A no-op on the primary (borrowed)
// handle.
func (h *TxHandle) ReleaseHandle() {
	if !h.isStrand || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.session.Release()
	tc := h.control
	tc.strandsMu.Lock()
	delete(tc.strands, h)
	tc.strandsMu.Unlock()
}

func (tc *TransactionControl) checkActive() StatusCode {
	if tc.disposed.Load() {
		return StatusErrInvalidState
	}
	switch TransactionStateKind(tc.state.Load()) {
	case TxStateStarted:
		return StatusOK
	case TxStateWaitingStart:
		return StatusPremature
	default:
		return StatusErrInactiveTransaction
	}
}

func (h *TxHandle) checkUsable() StatusCode {
	if h.isStrand && h.released.Load() {
		return StatusErrInvalidState
	}
	return h.control.checkActive()
}

func (tc *TransactionControl) releaseActive(final TransactionStateKind) {
	tc.state.Store(int32(final))
	tc.db.unregisterTx(tc)
	kvmetrics.ActiveTransactions.WithLabelValues(tc.db.backend.ImplID()).Dec()
}

// Commit commits the transaction synchronously. Returns
// StatusOK once durable (or pre-committed when options.Async is true), or
// StatusErrAbortedRetryable if concurrency control rejected it.
func (tc *TransactionControl) Commit() StatusCode {
	if s := tc.checkActive(); s != StatusOK {
		if s == StatusErrInactiveTransaction {
			return StatusOK
		}
		return s
	}
	timer := kvmetrics.NewTimer()
	status := tc.session.Commit(tc.options.Async)
	switch status {
	case StatusOK:
		tc.releaseActive(TxStateDurable)
	case StatusWaitingForOtherTransaction:
		tc.releaseActive(TxStateWaitingCCCommit)
	default:
		tc.releaseActive(TxStateAborted)
	}
	timer.ObserveOperation("commit", status.String())
	return status
}

// CommitWithCallback commits asynchronously, invoking cb exactly once with
// the final (StatusCode, ErrorCode, durability marker). The boolean result reports whether cb already ran
// before this call returned.
func (tc *TransactionControl) CommitWithCallback(cb CommitCallback) bool {
	if s := tc.checkActive(); s != StatusOK {
		cb(s, ErrorGeneric, 0)
		return true
	}
	timer := kvmetrics.NewTimer()
	wrapped := func(status StatusCode, errCode ErrorCode, marker int64) {
		if status == StatusOK {
			tc.releaseActive(TxStateDurable)
		} else {
			tc.releaseActive(TxStateAborted)
		}
		timer.ObserveOperation("commit", status.String())
		cb(status, errCode, marker)
	}
	return tc.session.CommitWithCallback(wrapped)
}

// Abort rolls back (or rejects, if rollback=false) the transaction.
// Idempotent: the first call does the work, subsequent calls return
// StatusOK without effect.
func (tc *TransactionControl) Abort(rollback bool) StatusCode {
	if TransactionStateKind(tc.state.Load()) != TxStateStarted && TransactionStateKind(tc.state.Load()) != TxStateWaitingStart {
		return StatusOK
	}
	status := tc.session.Abort(rollback)
	tc.releaseActive(TxStateAborted)
	return status
}

// CheckState reports the transaction's current coarse lifecycle state.
func (tc *TransactionControl) CheckState() TransactionStateKind {
	if tc.disposed.Load() {
		return TxStateAborted
	}
	state := TransactionStateKind(tc.state.Load())
	if state == TxStateWaitingCCCommit {
		// the backend finishes a deferred commit on its own; ask it.
		return tc.session.CheckState()
	}
	return state
}

// GetInfo returns the backend-assigned transaction id, stable for the
// transaction's lifetime.
func (tc *TransactionControl) GetInfo() string {
	if id := tc.session.InfoID(); id != "" {
		return id
	}
	return fmt.Sprintf("tx-%d", tc.id)
}

// RecentCallResult returns the diagnostic view of the transaction's most
// recent content-operation outcome.
func (tc *TransactionControl) RecentCallResult() CallResult {
	if p := tc.lastResult.Load(); p != nil {
		return *p
	}
	return tc.session.RecentCallResult()
}

// Dispose releases the control handle. If the transaction is still active
// it is implicitly aborted with rollback first.
func (tc *TransactionControl) Dispose() {
	if !tc.disposed.CompareAndSwap(false, true) {
		return
	}
	if TransactionStateKind(tc.state.Load()) == TxStateStarted || TransactionStateKind(tc.state.Load()) == TxStateWaitingStart {
		tc.session.Abort(true)
		tc.releaseActive(TxStateAborted)
	}
	tc.strandsMu.Lock()
	for h := range tc.strands {
		h.session.Release()
	}
	tc.strands = nil
	tc.strandsMu.Unlock()
	tc.session.Dispose()
}

func (tc *TransactionControl) recordCall(status StatusCode, errCode ErrorCode, locator *ErrorLocator, description string) {
	tc.lastResult.Store(&CallResult{Status: status, ErrorCode: errCode, Locator: locator, Description: description})
}

// CheckExist reports whether key exists in storage, without materializing
// its value.
func (h *TxHandle) CheckExist(storage *Storage, key []byte) StatusCode {
	if s := h.checkUsable(); s != StatusOK {
		return s
	}
	status := h.session.CheckExist(storage.backend, key)
	h.control.recordCall(status, statusToErrorCode(status), nil, "check_exist")
	return status
}

// Get reads key's value, returning a slice valid until the next
// state-changing call on h or its transaction.
func (h *TxHandle) Get(storage *Storage, key []byte) (Slice, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return Slice{}, s
	}
	value, status := h.session.Get(storage.backend, key)
	h.control.recordCall(status, statusToErrorCode(status), nil, "get")
	if status != StatusOK {
		return Slice{}, status
	}
	return BytesSlice(value), StatusOK
}

// GetBlobIDs returns the BLOB reference identifiers recorded against key by
// its most recent PutWithBlobs, or nil if it was written with Put or has no
// value at all.
func (h *TxHandle) GetBlobIDs(storage *Storage, key []byte) ([]uint64, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return nil, s
	}
	blobIDs, status := h.session.GetBlobIDs(storage.backend, key)
	h.control.recordCall(status, statusToErrorCode(status), nil, "get_blob_ids")
	if status != StatusOK {
		return nil, status
	}
	return blobIDs, StatusOK
}

// Put writes key=value under the given create/update semantics.
func (h *TxHandle) Put(storage *Storage, key, value []byte, op PutOperation) StatusCode {
	return h.putImpl(storage, key, value, op, nil)
}

// PutWithBlobs is Put plus recording blobIDs as belonging to the new value.
func (h *TxHandle) PutWithBlobs(storage *Storage, key, value []byte, op PutOperation, blobIDs []uint64) StatusCode {
	return h.putImpl(storage, key, value, op, blobIDs)
}

func (h *TxHandle) putImpl(storage *Storage, key, value []byte, op PutOperation, blobIDs []uint64) StatusCode {
	if s := h.checkUsable(); s != StatusOK {
		return s
	}
	if h.isStrand {
		return StatusErrInvalidArgument
	}
	if h.control.options.Type == TransactionTypeReadOnly {
		return StatusErrIllegalOperation
	}
	status := h.session.Put(storage.backend, key, value, op, blobIDs)
	h.control.recordCall(status, statusToErrorCode(status), &ErrorLocator{StorageName: storage.name, Key: key}, "put")
	if status.IsRetryableAbort() {
		h.control.releaseActive(TxStateAborted)
	}
	return status
}

// Delete removes key, if present.
func (h *TxHandle) Delete(storage *Storage, key []byte) StatusCode {
	if s := h.checkUsable(); s != StatusOK {
		return s
	}
	if h.isStrand {
		return StatusErrInvalidArgument
	}
	if h.control.options.Type == TransactionTypeReadOnly {
		return StatusErrIllegalOperation
	}
	status := h.session.Delete(storage.backend, key)
	h.control.recordCall(status, statusToErrorCode(status), &ErrorLocator{StorageName: storage.name, Key: key}, "delete")
	return status
}

func statusToErrorCode(s StatusCode) ErrorCode {
	switch s {
	case StatusOK:
		return ErrorOK
	case StatusNotFound:
		return ErrorKVSKeyNotFound
	case StatusAlreadyExists:
		return ErrorKVSKeyAlreadyExists
	default:
		return ErrorGeneric
	}
}

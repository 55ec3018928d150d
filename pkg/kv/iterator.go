package kv

import "sync/atomic"

// iteratorState tracks a cursor's INIT/BODY/END lifecycle.
type iteratorState int32

const (
	iterInit iteratorState = iota
	iterBody
	iterEnd
)

// Iterator is a scan cursor over one storage within one transaction. Its
// lifetime is bounded by its transaction's active lifetime; materialized
// Key()/Value() slices are valid only until the next state-changing call on
// the iterator or its transaction.
type Iterator struct {
	handle  *TxHandle
	storage *Storage
	strand  Session // non-nil when this scan opened a cloned strand session (read-only only)
	cursor  Cursor

	state    atomic.Int32
	disposed atomic.Bool
}

// Scan opens a cursor over storage between the given endpoints. limit=0 means unlimited; reverse=true scans
// high to low.
func (h *TxHandle) Scan(storage *Storage, beginKey []byte, beginKind EndPointKind, endKey []byte, endKind EndPointKind, limit int, reverse bool) (*Iterator, StatusCode) {
	if s := h.checkUsable(); s != StatusOK {
		return nil, s
	}

	loKey, loKind, hiKey, hiKind, empty := resolveEndpoints(beginKey, beginKind, endKey, endKind)
	if empty {
		it := &Iterator{handle: h, storage: storage}
		it.state.Store(int32(iterEnd))
		return it, StatusOK
	}

	session := h.session
	var strand Session
	if h.control.options.Type == TransactionTypeReadOnly {
		cloned, status := h.session.Acquire()
		if status != StatusOK {
			return nil, status
		}
		strand = cloned
		session = cloned
	}

	cursor, status := session.Scan(storage.backend, loKey, loKind, hiKey, hiKind, limit, reverse)
	if status != StatusOK {
		if strand != nil {
			strand.Release()
		}
		return nil, status
	}
	it := &Iterator{handle: h, storage: storage, strand: strand, cursor: cursor}
	it.state.Store(int32(iterInit))
	return it, StatusOK
}

// ContentScanPrefix is a convenience wrapper for PREFIXED_INCLUSIVE/next-
// sibling scans over every key with the given prefix.
func (h *TxHandle) ContentScanPrefix(storage *Storage, prefix []byte) (*Iterator, StatusCode) {
	return h.Scan(storage, prefix, EndPointPrefixedInclusive, prefix, EndPointPrefixedInclusive, 0, false)
}

// ContentScanRange is a convenience wrapper for an inclusive/exclusive
// bounded range scan.
func (h *TxHandle) ContentScanRange(storage *Storage, begin []byte, beginExclusive bool, end []byte, endExclusive bool) (*Iterator, StatusCode) {
	beginKind := EndPointInclusive
	if beginExclusive {
		beginKind = EndPointExclusive
	}
	endKind := EndPointInclusive
	if endExclusive {
		endKind = EndPointExclusive
	}
	return h.Scan(storage, begin, beginKind, end, endKind, 0, false)
}

// resolveEndpoints translates the five endpoint kinds into concrete
// inclusive/exclusive byte bounds. empty=true means the range is provably
// empty (PREFIXED_EXCLUSIVE of an all-0xFF key).
func resolveEndpoints(beginKey []byte, beginKind EndPointKind, endKey []byte, endKind EndPointKind) (loKey []byte, loKind EndPointKind, hiKey []byte, hiKind EndPointKind, empty bool) {
	switch beginKind {
	case EndPointUnbound:
		loKey, loKind = nil, EndPointUnbound
	case EndPointInclusive, EndPointExclusive:
		loKey, loKind = beginKey, beginKind
	case EndPointPrefixedInclusive:
		loKey, loKind = beginKey, EndPointInclusive
	case EndPointPrefixedExclusive:
		if sibling, ok := NextKeySibling(beginKey); ok {
			loKey, loKind = sibling, EndPointInclusive
		} else {
			return nil, EndPointUnbound, nil, EndPointUnbound, true
		}
	}

	switch endKind {
	case EndPointUnbound:
		hiKey, hiKind = nil, EndPointUnbound
	case EndPointInclusive, EndPointExclusive:
		hiKey, hiKind = endKey, endKind
	case EndPointPrefixedInclusive:
		if sibling, ok := NextKeySibling(endKey); ok {
			hiKey, hiKind = sibling, EndPointExclusive
		} else {
			hiKey, hiKind = nil, EndPointUnbound
		}
	case EndPointPrefixedExclusive:
		if sibling, ok := NextKeySibling(endKey); ok {
			hiKey, hiKind = sibling, EndPointExclusive
		} else {
			hiKey, hiKind = nil, EndPointUnbound
		}
	}
	return loKey, loKind, hiKey, hiKind, false
}

// Next advances the iterator. StatusOK enters BODY with a
// valid Key()/Value(); StatusNotFound enters END; a transient code (e.g.
// StatusPremature, StatusErrAbortedRetryable, StatusConcurrentOperation)
// leaves the iterator active for a retry.
func (it *Iterator) Next() StatusCode {
	if it.disposed.Load() {
		return StatusErrInvalidState
	}
	if iteratorState(it.state.Load()) == iterEnd {
		return StatusNotFound
	}
	if it.cursor == nil {
		it.state.Store(int32(iterEnd))
		return StatusNotFound
	}
	status := it.cursor.Next()
	switch status {
	case StatusOK:
		it.state.Store(int32(iterBody))
	case StatusNotFound:
		it.state.Store(int32(iterEnd))
	}
	return status
}

// Key returns the current entry's key. Valid only while the iterator is in
// BODY and no state-changing call has occurred since the last Next.
func (it *Iterator) Key() Slice {
	if iteratorState(it.state.Load()) != iterBody {
		return Slice{}
	}
	return BytesSlice(it.cursor.Key())
}

// Value returns the current entry's value, under the same validity rule as Key.
func (it *Iterator) Value() Slice {
	if iteratorState(it.state.Load()) != iterBody {
		return Slice{}
	}
	return BytesSlice(it.cursor.Value())
}

// Dispose closes the cursor and, if this scan opened a cloned strand
// session, commits and releases it independent of the parent transaction's
// state. Safe to call
// more than once; tolerates a cursor already invalidated by engine-side
// abort.
func (it *Iterator) Dispose() {
	if !it.disposed.CompareAndSwap(false, true) {
		return
	}
	if it.cursor != nil {
		it.cursor.Close()
	}
	if it.strand != nil {
		it.strand.Commit(false)
		it.strand.Release()
	}
}

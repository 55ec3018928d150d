package cc

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// pendingWrite is one buffered content mutation, keyed by storage+key so a
// transaction's own later write to the same key overrides an earlier one
// rather than both riding along to commit.
type pendingWrite struct {
	storage string
	key     []byte
	value   []byte
	op      kv.PutOperation
	delete  bool
	blobIDs []uint64
}

// Session is the CC backend's transaction view. It buffers
// every content write locally and submits them as a single cmdWrite batch
// at Commit; reads go straight to the live FSM state, which for SHORT
// transactions also extends the OCC read set validated at apply time.
type Session struct {
	db     *Database
	txType kv.TransactionType
	id     string
	strand bool

	writePreserves map[string]struct{}
	readAreaIncl   map[string]struct{}
	readAreaExcl   map[string]struct{}

	mu        sync.Mutex
	writes    map[string]*pendingWrite
	writeKO   []string // insertion order, for a stable, if arbitrary, apply order
	reads     map[string]readRecord
	seqWrites []seqPutPayload

	state    atomic.Int32 // kv.TransactionStateKind
	finished atomic.Bool

	resultMu sync.Mutex
	result   kv.CallResult
}

// BeginTransaction starts a new CC transaction. SHORT and
// LONG transactions buffer writes locally and certify/apply them at
// Commit; READ_ONLY transactions never buffer writes and read the FSM's
// live state directly.
func (d *Database) BeginTransaction(opts kv.TransactionOptions) (kv.Session, kv.StatusCode) {
	if d.maintenance && opts.Type != kv.TransactionTypeReadOnly {
		return nil, kv.StatusErrIllegalOperation
	}
	s := &Session{
		db:             d,
		txType:         opts.Type,
		id:             uuid.NewString(),
		writePreserves: toSet(opts.WritePreserves),
		readAreaIncl:   toSet(opts.ReadAreaInclusive),
		readAreaExcl:   toSet(opts.ReadAreaExclusive),
		writes:         map[string]*pendingWrite{},
		reads:          map[string]readRecord{},
	}
	s.state.Store(int32(kv.TxStateStarted))
	return s, kv.StatusOK
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func txKey(storage string, key []byte) string { return storage + "\x00" + string(key) }

func (s *Session) IsStrand() bool { return s.strand }

func (s *Session) checkReadArea(storageName string) kv.StatusCode {
	if s.txType != kv.TransactionTypeReadOnly {
		return kv.StatusOK
	}
	if len(s.readAreaIncl) > 0 {
		if _, ok := s.readAreaIncl[storageName]; !ok {
			return kv.StatusErrReadAreaViolation
		}
	}
	if len(s.readAreaExcl) > 0 {
		if _, excluded := s.readAreaExcl[storageName]; excluded {
			return kv.StatusErrReadAreaViolation
		}
	}
	return kv.StatusOK
}

// observe reads the live FSM entry for (storageName, key) and, for SHORT
// transactions, records it in the OCC read set so Commit can certify that
// nothing changed underneath this transaction.
func (s *Session) observe(storageName string, key []byte) (value []byte, present bool) {
	f := s.db.fsm
	f.mu.RLock()
	defer f.mu.RUnlock()

	st, ok := f.storages[storageName]
	if !ok {
		if s.txType == kv.TransactionTypeShort {
			s.recordRead(storageName, key, false, 0)
		}
		return nil, false
	}
	e, present := st.entries[string(key)]
	if s.txType == kv.TransactionTypeShort {
		if present {
			s.recordRead(storageName, key, true, e.version)
		} else {
			s.recordRead(storageName, key, false, 0)
		}
	}
	if !present {
		return nil, false
	}
	return e.value, true
}

func (s *Session) recordRead(storageName string, key []byte, present bool, version uint64) {
	s.mu.Lock()
	k := txKey(storageName, key)
	if _, seen := s.reads[k]; !seen {
		s.reads[k] = readRecord{Storage: storageName, Key: key, Present: present, Version: version}
	}
	s.mu.Unlock()
}

func (s *Session) CheckExist(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	name := string(storage.(*Storage).Name())
	if st := s.checkReadArea(name); st != kv.StatusOK {
		return st
	}
	if w, ok := s.bufferedWrite(name, key); ok {
		if w.delete {
			return kv.StatusNotFound
		}
		return kv.StatusOK
	}
	if _, present := s.observe(name, key); present {
		return kv.StatusOK
	}
	return kv.StatusNotFound
}

func (s *Session) Get(storage kv.BackendStorage, key []byte) ([]byte, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	name := string(storage.(*Storage).Name())
	if st := s.checkReadArea(name); st != kv.StatusOK {
		return nil, st
	}
	if w, ok := s.bufferedWrite(name, key); ok {
		if w.delete {
			return nil, kv.StatusNotFound
		}
		return w.value, kv.StatusOK
	}
	value, present := s.observe(name, key)
	if !present {
		return nil, kv.StatusNotFound
	}
	return value, kv.StatusOK
}

func (s *Session) bufferedWrite(storageName string, key []byte) (*pendingWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writes[txKey(storageName, key)]
	return w, ok
}

func (s *Session) Put(storage kv.BackendStorage, key, value []byte, op kv.PutOperation, blobIDs []uint64) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	name := string(storage.(*Storage).Name())
	if s.txType == kv.TransactionTypeLong {
		if _, ok := s.writePreserves[name]; !ok {
			return kv.StatusErrWriteWithoutWritePreserve
		}
	}

	k := txKey(name, key)
	s.mu.Lock()
	buffered, alreadyBuffered := s.writes[k]
	var exists bool
	switch {
	case alreadyBuffered:
		exists = !buffered.delete
	default:
		_, exists = s.observeLocked(name, key)
	}

	switch op {
	case kv.PutCreate:
		if exists {
			s.mu.Unlock()
			return kv.StatusAlreadyExists
		}
	case kv.PutUpdate:
		if !exists {
			s.mu.Unlock()
			return kv.StatusNotFound
		}
	}

	if !alreadyBuffered {
		s.writeKO = append(s.writeKO, k)
	}
	s.writes[k] = &pendingWrite{storage: name, key: key, value: append([]byte(nil), value...), op: op, blobIDs: append([]uint64(nil), blobIDs...)}
	s.mu.Unlock()
	return kv.StatusOK
}

// GetBlobIDs returns the BLOB reference identifiers most recently recorded
// against key via put_with_blobs. A buffered, not-yet-committed write in
// this transaction takes precedence over the FSM's durable state.
func (s *Session) GetBlobIDs(storage kv.BackendStorage, key []byte) ([]uint64, kv.StatusCode) {
	if len(key) == 0 {
		return nil, kv.StatusErrInvalidKeyLength
	}
	name := string(storage.(*Storage).Name())
	if st := s.checkReadArea(name); st != kv.StatusOK {
		return nil, st
	}
	if w, ok := s.bufferedWrite(name, key); ok {
		if w.delete {
			return nil, kv.StatusNotFound
		}
		return append([]uint64(nil), w.blobIDs...), kv.StatusOK
	}
	f := s.db.fsm
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.storages[name]
	if !ok {
		return nil, kv.StatusNotFound
	}
	e, present := st.entries[string(key)]
	if !present {
		return nil, kv.StatusNotFound
	}
	return append([]uint64(nil), e.blobIDs...), kv.StatusOK
}

// observeLocked is observe without re-taking s.mu, for callers (Put) that
// already hold it while deciding create/update semantics.
func (s *Session) observeLocked(storageName string, key []byte) ([]byte, bool) {
	s.mu.Unlock()
	value, present := s.observe(storageName, key)
	s.mu.Lock()
	return value, present
}

func (s *Session) Delete(storage kv.BackendStorage, key []byte) kv.StatusCode {
	if len(key) == 0 {
		return kv.StatusErrInvalidKeyLength
	}
	name := string(storage.(*Storage).Name())
	if s.txType == kv.TransactionTypeLong {
		if _, ok := s.writePreserves[name]; !ok {
			return kv.StatusErrWriteWithoutWritePreserve
		}
	}

	k := txKey(name, key)
	s.mu.Lock()
	buffered, alreadyBuffered := s.writes[k]
	var exists bool
	switch {
	case alreadyBuffered:
		exists = !buffered.delete
	default:
		_, exists = s.observeLocked(name, key)
	}
	if !exists {
		s.mu.Unlock()
		return kv.StatusNotFound
	}
	if !alreadyBuffered {
		s.writeKO = append(s.writeKO, k)
	}
	s.writes[k] = &pendingWrite{storage: name, key: key, delete: true}
	s.mu.Unlock()
	return kv.StatusOK
}

func (s *Session) Scan(storage kv.BackendStorage, beginKey []byte, beginKind kv.EndPointKind, endKey []byte, endKind kv.EndPointKind, limit int, reverse bool) (kv.Cursor, kv.StatusCode) {
	name := string(storage.(*Storage).Name())
	if st := s.checkReadArea(name); st != kv.StatusOK {
		return nil, st
	}
	return newCursor(s, name, beginKey, beginKind, endKey, endKind, limit, reverse), kv.StatusOK
}

// Acquire returns an additional strand for a READ_ONLY transaction. Since
// every strand only ever reads the FSM's live state directly, a strand
// needs none of the primary session's buffering state.
func (s *Session) Acquire() (kv.Session, kv.StatusCode) {
	return &Session{
		db:           s.db,
		txType:       s.txType,
		id:           s.id,
		strand:       true,
		readAreaIncl: s.readAreaIncl,
		readAreaExcl: s.readAreaExcl,
		writes:       map[string]*pendingWrite{},
		reads:        map[string]readRecord{},
	}, kv.StatusOK
}

// Release is a no-op: strands hold no backend resource of their own.
func (s *Session) Release() {}

func (s *Session) buildWritePayload() writeCommandPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := writeCommandPayload{OCC: s.txType == kv.TransactionTypeShort}
	for _, k := range s.writeKO {
		w := s.writes[k]
		payload.Writes = append(payload.Writes, writeOp{Storage: w.storage, Key: w.key, Value: w.value, Op: w.op, Delete: w.delete, BlobIDs: w.blobIDs})
	}
	for _, r := range s.reads {
		payload.Reads = append(payload.Reads, r)
	}
	payload.Sequences = append(payload.Sequences, s.seqWrites...)
	return payload
}

func (s *Session) preserveNames() []string {
	names := make([]string, 0, len(s.writePreserves))
	for n := range s.writePreserves {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Commit certifies and applies this transaction's buffered writes.
// READ_ONLY transactions have nothing to apply. SHORT
// transactions submit their OCC read set alongside the write batch for
// certification in FSM.applyWrite. LONG transactions first serialize
// against other LONG transactions preserving an overlapping storage set;
// if that lock isn't immediately available, Commit returns
// StatusWaitingForOtherTransaction right away and finishes the commit on a
// background goroutine, after which CheckState and
// RecentCallResult report the eventual outcome.
func (s *Session) Commit(async bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusErrInactiveTransaction
	}

	if s.txType == kv.TransactionTypeReadOnly {
		s.state.Store(int32(kv.TxStateDurable))
		s.setResult(kv.StatusOK, kv.ErrorOK, "")
		return kv.StatusOK
	}

	if s.txType == kv.TransactionTypeLong {
		preserved := s.preserveNames()
		if ok, sorted := s.db.preserves.tryAcquireAll(preserved); ok {
			status := s.commitNow()
			s.db.preserves.release(sorted)
			return status
		}
		s.state.Store(int32(kv.TxStateWaitingCCCommit))
		go func() {
			s.db.preserves.acquireAllBlocking(preserved)
			s.commitNow()
			s.db.preserves.release(preserved)
		}()
		return kv.StatusWaitingForOtherTransaction
	}

	return s.commitNow()
}

func (s *Session) commitNow() kv.StatusCode {
	payload := s.buildWritePayload()
	if len(payload.Writes) == 0 && len(payload.Sequences) == 0 {
		s.state.Store(int32(kv.TxStateDurable))
		s.setResult(kv.StatusOK, kv.ErrorOK, "")
		return kv.StatusOK
	}

	cmd, err := newCommand(cmdWrite, payload)
	if err != nil {
		s.state.Store(int32(kv.TxStateAborted))
		s.setResult(kv.StatusErrIOError, kv.ErrorGeneric, "")
		return kv.StatusErrIOError
	}

	_, index, status := s.db.apply(cmd)
	if status == kv.StatusOK {
		s.state.Store(int32(kv.TxStateDurable))
		s.setResult(kv.StatusOK, kv.ErrorOK, fmt.Sprintf("%d", index))
	} else {
		s.state.Store(int32(kv.TxStateAborted))
		s.setResult(status, statusToLocalErrorCode(status, s.txType), "")
	}
	return status
}

func (s *Session) CommitWithCallback(cb kv.CommitCallback) bool {
	if s.txType != kv.TransactionTypeLong {
		status := s.Commit(true)
		cb(status, statusToLocalErrorCode(status, s.txType), s.durabilityMarker())
		return true
	}

	if !s.finished.CompareAndSwap(false, true) {
		cb(kv.StatusErrInactiveTransaction, kv.ErrorGeneric, 0)
		return true
	}
	preserved := s.preserveNames()
	if ok, sorted := s.db.preserves.tryAcquireAll(preserved); ok {
		status := s.commitNow()
		s.db.preserves.release(sorted)
		cb(status, statusToLocalErrorCode(status, s.txType), s.durabilityMarker())
		return true
	}
	s.state.Store(int32(kv.TxStateWaitingCCCommit))
	go func() {
		s.db.preserves.acquireAllBlocking(preserved)
		status := s.commitNow()
		s.db.preserves.release(preserved)
		cb(status, statusToLocalErrorCode(status, s.txType), s.durabilityMarker())
	}()
	return false
}

func (s *Session) durabilityMarker() int64 {
	return int64(s.db.raft.AppliedIndex())
}

func (s *Session) Abort(rollback bool) kv.StatusCode {
	if !s.finished.CompareAndSwap(false, true) {
		return kv.StatusOK
	}
	s.state.Store(int32(kv.TxStateAborted))
	s.setResult(kv.StatusUserRollback, kv.ErrorOK, "")
	return kv.StatusOK
}

func (s *Session) CheckState() kv.TransactionStateKind {
	return kv.TransactionStateKind(s.state.Load())
}

func (s *Session) InfoID() string { return s.id }

func (s *Session) RecentCallResult() kv.CallResult {
	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	return s.result
}

func (s *Session) setResult(status kv.StatusCode, errCode kv.ErrorCode, description string) {
	s.resultMu.Lock()
	s.result = kv.CallResult{Status: status, ErrorCode: errCode, Description: description}
	s.resultMu.Unlock()
}

func (s *Session) Dispose() {
	if s.finished.CompareAndSwap(false, true) {
		s.state.Store(int32(kv.TxStateAborted))
	}
}

// statusToLocalErrorCode is a small CC-specific refinement of the façade's
// generic status->error-code mapping, surfacing which validation layer
// (OCC vs LTX) produced a retryable abort.
func statusToLocalErrorCode(status kv.StatusCode, txType kv.TransactionType) kv.ErrorCode {
	switch status {
	case kv.StatusOK:
		return kv.ErrorOK
	case kv.StatusAlreadyExists:
		return kv.ErrorKVSKeyAlreadyExists
	case kv.StatusNotFound:
		return kv.ErrorKVSKeyNotFound
	case kv.StatusErrAbortedRetryable:
		if txType == kv.TransactionTypeLong {
			return kv.ErrorCCLTXWriteError
		}
		return kv.ErrorCCOCCReadError
	default:
		return kv.ErrorGeneric
	}
}

package cc

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// commandKind enumerates the Command.Op vocabulary the FSM accepts.
type commandKind string

const (
	cmdCreateStorage commandKind = "create_storage"
	cmdDeleteStorage commandKind = "delete_storage"
	cmdSetOptions    commandKind = "set_options"
	cmdWrite          commandKind = "write" // validated OCC or unconditional LTX write batch, sequences included
	cmdSequenceDelete commandKind = "sequence_delete"
)

// Command is the JSON-encoded payload submitted through raft.Apply.
type Command struct {
	Op   commandKind     `json:"op"`
	Data json.RawMessage `json:"data"`
}

// writeOp is one buffered content mutation within a transaction's write set.
type writeOp struct {
	Storage string          `json:"storage"`
	Key     []byte          `json:"key"`
	Value   []byte          `json:"value"`
	Op      kv.PutOperation `json:"op"`
	Delete  bool            `json:"delete"`
	BlobIDs []uint64        `json:"blob_ids,omitempty"`
}

// readRecord is one entry of a transaction's OCC read set: the version
// observed for (storage, key) when it was read (0 and !present means the
// key was confirmed absent).
type readRecord struct {
	Storage string `json:"storage"`
	Key     []byte `json:"key"`
	Present bool   `json:"present"`
	Version uint64 `json:"version"`
}

// writeCommandPayload is cmdWrite's Data. Sequences rides along so that a
// SequencePut issued mid-transaction becomes durable atomically with the
// rest of the transaction's content writes.
type writeCommandPayload struct {
	OCC       bool            `json:"occ"`
	Reads     []readRecord    `json:"reads"`
	Writes    []writeOp       `json:"writes"`
	Sequences []seqPutPayload `json:"sequences"`
}

type seqPutPayload struct {
	ID      uint64 `json:"id"`
	Version uint64 `json:"version"`
	Value   int64  `json:"value"`
}

// applyResult is what Apply returns through the raft future's Response().
type applyResult struct {
	status kv.StatusCode
}

// entry is one versioned value inside a storage's ordered map.
type entry struct {
	value   []byte
	version uint64 // raft log index that last wrote this key
	blobIDs []uint64
}

// storageState is one storage's in-memory ordered map plus its registry
// metadata, all guarded by FSM.mu alongside everything else.
type storageState struct {
	name    []byte
	id      uint64
	payload []byte

	keys    []string
	entries map[string]*entry
}

func newStorageState(name []byte, id uint64, payload []byte) *storageState {
	return &storageState{name: append([]byte(nil), name...), id: id, payload: payload, entries: map[string]*entry{}}
}

// FSM is the raft finite state machine backing the CC database. All reads
// and writes to its state go through mu; writes additionally require a
// committed raft log entry.
type FSM struct {
	mu       sync.RWMutex
	storages map[string]*storageState
	nextID   uint64
	sequences map[uint64]*sequenceEntry
	nextSeq  uint64
}

type sequenceEntry struct {
	version uint64
	value   int64
}

func newFSM() *FSM {
	return &FSM{storages: map[string]*storageState{}, sequences: map[uint64]*sequenceEntry{}}
}

// Apply applies one committed raft log entry.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return &applyResult{status: kv.StatusErrIOError}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case cmdCreateStorage:
		var payload struct {
			Name    []byte `json:"name"`
			ID      uint64 `json:"id"`
			Payload []byte `json:"payload"`
		}
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return &applyResult{status: kv.StatusErrIOError}
		}
		key := string(payload.Name)
		if _, exists := f.storages[key]; exists {
			return &applyResult{status: kv.StatusAlreadyExists}
		}
		id := payload.ID
		if id == 0 {
			f.nextID++
			id = f.nextID
		}
		f.storages[key] = newStorageState(payload.Name, id, payload.Payload)
		return &applyResult{status: kv.StatusOK}

	case cmdDeleteStorage:
		var name []byte
		if err := json.Unmarshal(cmd.Data, &name); err != nil {
			return &applyResult{status: kv.StatusErrIOError}
		}
		key := string(name)
		if _, exists := f.storages[key]; !exists {
			return &applyResult{status: kv.StatusNotFound}
		}
		delete(f.storages, key)
		return &applyResult{status: kv.StatusOK}

	case cmdSetOptions:
		var payload struct {
			Name    []byte `json:"name"`
			Payload []byte `json:"payload"`
		}
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return &applyResult{status: kv.StatusErrIOError}
		}
		st, ok := f.storages[string(payload.Name)]
		if !ok {
			return &applyResult{status: kv.StatusNotFound}
		}
		st.payload = payload.Payload
		return &applyResult{status: kv.StatusOK}

	case cmdWrite:
		var payload writeCommandPayload
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return &applyResult{status: kv.StatusErrIOError}
		}
		return f.applyWrite(uint64(log.Index), payload)

	case cmdSequenceDelete:
		var id uint64
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return &applyResult{status: kv.StatusErrIOError}
		}
		delete(f.sequences, id)
		return &applyResult{status: kv.StatusOK}

	default:
		return &applyResult{status: kv.StatusErrUnknown}
	}
}

// applyWrite performs OCC certification (when payload.OCC) then mutates
// state. Certification fails if any read-set entry's version has advanced
// past what the transaction observed, or if presence/absence changed.
func (f *FSM) applyWrite(logIndex uint64, payload writeCommandPayload) *applyResult {
	if payload.OCC {
		for _, r := range payload.Reads {
			st, ok := f.storages[r.Storage]
			if !ok {
				continue
			}
			e, present := st.entries[string(r.Key)]
			if present != r.Present {
				return &applyResult{status: kv.StatusErrAbortedRetryable}
			}
			if present && e.version != r.Version {
				return &applyResult{status: kv.StatusErrAbortedRetryable}
			}
		}
	}

	// Check every write against the current state before mutating anything,
	// so a rejected batch leaves no partial effect behind.
	for _, w := range payload.Writes {
		st, ok := f.storages[w.Storage]
		if !ok {
			return &applyResult{status: kv.StatusNotFound}
		}
		_, present := st.entries[string(w.Key)]
		if !w.Delete && w.Op == kv.PutCreate && present {
			return conflictOrExists(payload.OCC, kv.StatusAlreadyExists)
		}
		if !w.Delete && w.Op == kv.PutUpdate && !present {
			return conflictOrExists(payload.OCC, kv.StatusNotFound)
		}
	}

	for _, w := range payload.Writes {
		st, ok := f.storages[w.Storage]
		if !ok {
			return &applyResult{status: kv.StatusNotFound}
		}
		key := string(w.Key)
		if w.Delete {
			if _, present := st.entries[key]; !present {
				continue
			}
			delete(st.entries, key)
			st.keys = removeSorted(st.keys, key)
			continue
		}
		_, present := st.entries[key]
		switch w.Op {
		case kv.PutCreate:
			if present {
				return conflictOrExists(payload.OCC, kv.StatusAlreadyExists)
			}
		case kv.PutUpdate:
			if !present {
				return conflictOrExists(payload.OCC, kv.StatusNotFound)
			}
		}
		if !present {
			st.keys = insertSorted(st.keys, key)
		}
		st.entries[key] = &entry{value: append([]byte(nil), w.Value...), version: logIndex, blobIDs: append([]uint64(nil), w.BlobIDs...)}
	}

	for _, sp := range payload.Sequences {
		rec, ok := f.sequences[sp.ID]
		if !ok || sp.Version >= rec.version {
			f.sequences[sp.ID] = &sequenceEntry{version: sp.Version, value: sp.Value}
		}
	}
	return &applyResult{status: kv.StatusOK}
}

// conflictOrExists reports a plain existence-check failure for OCC (short)
// transactions, where the caller already had the chance to observe this at
// put-time. LTX transactions never pre-validate existence (they're
// serialized only by write-preserve locks, not per-key versions), so a
// conflict discovered only now at apply time is reported as a retryable
// abort instead: the transaction must be reissued,
// not told its content call failed.
func conflictOrExists(occ bool, existsStatus kv.StatusCode) *applyResult {
	if occ {
		return &applyResult{status: existsStatus}
	}
	return &applyResult{status: kv.StatusErrAbortedRetryable}
}

func insertSorted(keys []string, key string) []string {
	i := sort.SearchStrings(keys, key)
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = key
	return keys
}

func removeSorted(keys []string, key string) []string {
	i := sort.SearchStrings(keys, key)
	if i < len(keys) && keys[i] == key {
		return append(keys[:i], keys[i+1:]...)
	}
	return keys
}

// snapshot is the raft.FSMSnapshot persisted to disk.
type snapshot struct {
	Storages  []snapshotStorage  `json:"storages"`
	Sequences []snapshotSequence `json:"sequences"`
}

type snapshotStorage struct {
	Name     []byte              `json:"name"`
	ID       uint64              `json:"id"`
	Payload  []byte              `json:"payload"`
	Entries  map[string][]byte   `json:"entries"`
	Versions map[string]uint64   `json:"versions"`
	BlobIDs  map[string][]uint64 `json:"blob_ids,omitempty"`
}

type snapshotSequence struct {
	ID      uint64 `json:"id"`
	Version uint64 `json:"version"`
	Value   int64  `json:"value"`
}

// Snapshot captures the FSM's full state.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap := &snapshot{}
	for _, st := range f.storages {
		entries := make(map[string][]byte, len(st.entries))
		versions := make(map[string]uint64, len(st.entries))
		blobIDs := make(map[string][]uint64)
		for k, e := range st.entries {
			entries[k] = e.value
			versions[k] = e.version
			if len(e.blobIDs) > 0 {
				blobIDs[k] = e.blobIDs
			}
		}
		snap.Storages = append(snap.Storages, snapshotStorage{
			Name: st.name, ID: st.id, Payload: st.payload, Entries: entries, Versions: versions, BlobIDs: blobIDs,
		})
	}
	for id, rec := range f.sequences {
		snap.Sequences = append(snap.Sequences, snapshotSequence{ID: id, Version: rec.version, Value: rec.value})
	}
	return snap, nil
}

// Restore replaces the FSM's state with a previously persisted snapshot.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var snap snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("cc: decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.storages = map[string]*storageState{}
	f.sequences = map[uint64]*sequenceEntry{}
	for _, s := range snap.Storages {
		st := newStorageState(s.Name, s.ID, s.Payload)
		for k, v := range s.Entries {
			st.entries[k] = &entry{value: v, version: s.Versions[k], blobIDs: s.BlobIDs[k]}
			st.keys = insertSorted(st.keys, k)
		}
		if s.ID > f.nextID {
			f.nextID = s.ID
		}
		f.storages[string(s.Name)] = st
	}
	for _, s := range snap.Sequences {
		f.sequences[s.ID] = &sequenceEntry{version: s.Version, value: s.Value}
		if s.ID > f.nextSeq {
			f.nextSeq = s.ID
		}
	}
	return nil
}

func (snap *snapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(snap); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (snap *snapshot) Release() {}

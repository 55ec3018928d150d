package cc

import "github.com/tsurugidb/sharksfin-go/pkg/kv"

// SequenceCreate allocates a fresh sequence id. Allocation itself doesn't
// need raft consensus — it only needs to never repeat — so it's served
// from the FSM's local counter under its own lock rather than going
// through a log entry.
func (d *Database) SequenceCreate() uint64 {
	d.fsm.mu.Lock()
	defer d.fsm.mu.Unlock()
	d.fsm.nextSeq++
	return d.fsm.nextSeq
}

// SequencePut buffers (id, version, value) into sess's write set so it
// becomes durable atomically with the rest of the transaction's content
// writes at Commit.
func (d *Database) SequencePut(sess kv.Session, id uint64, version uint64, value int64) kv.StatusCode {
	s, ok := sess.(*Session)
	if !ok {
		return kv.StatusErrInvalidArgument
	}
	s.mu.Lock()
	s.seqWrites = append(s.seqWrites, seqPutPayload{ID: id, Version: version, Value: value})
	s.mu.Unlock()
	return kv.StatusOK
}

// SequenceGet returns the highest durable (version, value) pair for id.
func (d *Database) SequenceGet(id uint64) (version uint64, value int64, status kv.StatusCode) {
	d.fsm.mu.RLock()
	defer d.fsm.mu.RUnlock()
	rec, ok := d.fsm.sequences[id]
	if !ok {
		return 0, 0, kv.StatusNotFound
	}
	return rec.version, rec.value, kv.StatusOK
}

// SequenceDelete removes id via the raft log so its removal is itself
// durable and replicated.
func (d *Database) SequenceDelete(id uint64) kv.StatusCode {
	cmd, err := newCommand(cmdSequenceDelete, id)
	if err != nil {
		return kv.StatusErrIOError
	}
	_, _, status := d.apply(cmd)
	return status
}

package memory

import "github.com/tsurugidb/sharksfin-go/pkg/kv"

// SequenceCreate allocates a fresh sequence id. The
// in-process backend has no durable writer registry to recover ids from,
// so allocation is a simple atomic counter.
func (d *Database) SequenceCreate() uint64 {
	return d.nextSeq.Add(1)
}

// SequencePut records (version, value) for id. The in-process backend has
// no real durability, so the write is visible as soon as the owning
// transaction commits.
func (d *Database) SequencePut(sess kv.Session, id uint64, version uint64, value int64) kv.StatusCode {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	rec, ok := d.seqs[id]
	if !ok {
		rec = &sequenceRecord{}
		d.seqs[id] = rec
	}
	if !rec.has || version >= rec.version {
		rec.version = version
		rec.value = value
		rec.has = true
	}
	return kv.StatusOK
}

// SequenceGet returns the latest recorded (version, value) for id.
func (d *Database) SequenceGet(id uint64) (uint64, int64, kv.StatusCode) {
	d.seqMu.RLock()
	defer d.seqMu.RUnlock()
	rec, ok := d.seqs[id]
	if !ok || !rec.has {
		return 0, 0, kv.StatusNotFound
	}
	return rec.version, rec.value, kv.StatusOK
}

// SequenceDelete removes id's record.
func (d *Database) SequenceDelete(id uint64) kv.StatusCode {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	if _, ok := d.seqs[id]; !ok {
		return kv.StatusNotFound
	}
	delete(d.seqs, id)
	return kv.StatusOK
}

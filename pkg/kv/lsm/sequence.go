package lsm

import (
	bolt "go.etcd.io/bbolt"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// SequenceCreate allocates a fresh id from the __sequences__ bucket's own
// monotonic counter.
func (d *Database) SequenceCreate() uint64 {
	var id uint64
	_ = d.db.Update(func(tx *bolt.Tx) error {
		seq, err := tx.Bucket(bucketSequences).NextSequence()
		if err != nil {
			return err
		}
		id = seq
		return nil
	})
	return id
}

// SequencePut writes (version, value) within sess's own transaction so the
// sequence update becomes durable together with the caller's writes, but
// only if version is not behind whatever is already recorded: across the
// database, the largest durable version wins regardless of commit order.
func (d *Database) SequencePut(sess kv.Session, id uint64, version uint64, value int64) kv.StatusCode {
	s, ok := sess.(*Session)
	if !ok || !s.writable {
		return kv.StatusErrInvalidArgument
	}
	key := make([]byte, 8)
	putBeUint64(key, id)

	bucket := s.tx.Bucket(bucketSequences)
	if existing := bucket.Get(key); existing != nil && beUint64(existing[:8]) > version {
		return kv.StatusOK
	}

	rec := make([]byte, 16)
	putBeUint64(rec[:8], version)
	putBeUint64(rec[8:], uint64(value))
	if err := bucket.Put(key, rec); err != nil {
		return kv.StatusErrIOError
	}
	return kv.StatusOK
}

// SequenceGet reads the latest durably-committed (version, value) for id.
func (d *Database) SequenceGet(id uint64) (uint64, int64, kv.StatusCode) {
	key := make([]byte, 8)
	putBeUint64(key, id)

	var version uint64
	var value int64
	found := false
	_ = d.db.View(func(tx *bolt.Tx) error {
		rec := tx.Bucket(bucketSequences).Get(key)
		if rec == nil {
			return nil
		}
		version = beUint64(rec[:8])
		value = int64(beUint64(rec[8:]))
		found = true
		return nil
	})
	if !found {
		return 0, 0, kv.StatusNotFound
	}
	return version, value, kv.StatusOK
}

// SequenceDelete removes id's record.
func (d *Database) SequenceDelete(id uint64) kv.StatusCode {
	key := make([]byte, 8)
	putBeUint64(key, id)

	existed := false
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSequences)
		if b.Get(key) == nil {
			return nil
		}
		existed = true
		return b.Delete(key)
	})
	if err != nil {
		return kv.StatusErrIOError
	}
	if !existed {
		return kv.StatusNotFound
	}
	return kv.StatusOK
}

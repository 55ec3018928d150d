/*
Package lsm is the persistent backend (1b): every storage is a bbolt
bucket, and bbolt's own single-writer lock serializes all write
transactions.

	Database ──▶ *bbolt.DB
	                │
	                ├─ bucket "__meta__"       (storage name → id, opaque payload)
	                ├─ bucket "__data__"       (one nested bucket per storage: key → value)
	                ├─ bucket "__blobs__"      (one nested bucket per storage: key → BLOB ids)
	                └─ bucket "__sequences__"  (sequence id → version, value)

A transaction opens one manually-managed bbolt transaction
(db.Begin(writable)) for its lifetime and commits or rolls it back at
Commit/Abort time rather than per-operation, so a multi-put transaction is
one bbolt commit. SHORT and LONG transactions open a writable bbolt
transaction, so a second one blocks in BeginTransaction until the first
finishes. Read-only transactions open a read-only bbolt transaction on
their own MVCC snapshot and run concurrently with each other and with the
one active writer.
*/
package lsm

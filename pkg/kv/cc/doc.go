/*
Package cc is the concurrency-controlled backend (1c): optimistic short
transactions, long transactions serialized by declared write preserves,
and read-only transactions served by strand readers — all committed
through a single-node hashicorp/raft group whose applied log index is
this backend's durability marker.

	┌────────────────────────── cc ──────────────────────────────┐
	│                                                               │
	│  Session (SHORT)   ── buffers reads+writes ── Commit ──▶     │
	│                                                raft.Apply ──▶ │
	│  Session (LONG)     ── buffers writes only ── preserveManager │
	│                        (non-blocking try, else background    │
	│                         blocking acquire) ── Commit ──▶       │
	│                                                raft.Apply ──▶ │
	│  Session (READ_ONLY)── Acquire() strand ── Get/Scan only      │
	│                                                               │
	│                         ▼                                    │
	│                    FSM.Apply (single-threaded)                │
	│                 validates SHORT read-sets against              │
	│                 current storageState versions,                │
	│                 applies writes + sequence puts atomically      │
	└───────────────────────────────────────────────────────────────┘

A SHORT transaction's read-set records, per key read, whether it was
present and at what log-index "version" it was last written; FSM.Apply
re-checks every entry at apply time (inside raft's single-threaded apply
loop, so this check is race-free) and aborts the whole write batch with
ERR_ABORTED_RETRYABLE on any mismatch — textbook OCC certification.

A LONG transaction instead declares write-preserves up front and is
certified purely by preserveManager's per-storage ticket locks: Commit
tries a non-blocking acquisition of every preserved storage first,
returning WAITING_FOR_OTHER_TRANSACTION immediately if another LONG
transaction holds one, while a background goroutine finishes the commit
once the lock is free.

Sequence writes ride along in the same write command as content puts/
deletes (see fsm.go's writeCommandPayload.Sequences) so a sequence update
is durable exactly when the rest of its transaction is, never separately.
*/
package cc

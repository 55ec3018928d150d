/*
Package kv is the uniform transactional key-value façade described in the
project's specification: one handle-based API in front of three
interchangeable storage engines.

# Architecture

	┌──────────────────────── kv FAÇADE ─────────────────────────┐
	│                                                              │
	│  Database ──owns──▶ Storage (name → backend handle cache)   │
	│     │                                                        │
	│     ├─ TransactionBegin ──▶ TransactionControl               │
	│     │                           │                            │
	│     │                    BorrowHandle / AcquireHandle        │
	│     │                           │                            │
	│     │                        TxHandle ──▶ Scan ──▶ Iterator  │
	│     │                                                        │
	│     └─ SequenceCreate/Get/Delete, TxHandle.SequencePut       │
	│                                                              │
	│  BackendDatabase / BackendStorage / Session / Cursor          │
	│  (implemented by pkg/kv/memory, pkg/kv/lsm, pkg/kv/cc)        │
	└────────────────────────────────────────────────────────────┘

Every public entry point returns a StatusCode rather than panicking or
exiting; RecentCallResult/CallResult carry post-mortem detail (ErrorCode
plus an optional storage/key locator) for the last failed content
operation on a transaction.

# Backends

Three implementations register themselves via RegisterBackend from their
own init():

  - memory — in-process ordered map, one coarse RWMutex.
  - lsm    — bbolt-backed persistent engine, one global writer mutex.
  - cc     — OCC short transactions, long transactions with write
    preserves and read areas, and read-only strand readers, backed by a
    single-node raft group whose applied log index is the durability
    marker.

Open selects among them by implementation id ("memory", "lsm", "cc");
callers never touch the BackendDatabase/BackendStorage/Session/Cursor
interfaces directly unless they are writing a fourth backend.

# Transactions

TransactionBegin returns a TransactionControl immediately; content
operations run through a TxHandle obtained from BorrowHandle (the
always-available primary handle) or AcquireHandle (which clones a strand
session for read-only transactions, letting callers scan in parallel).
Commit/CommitWithCallback/Abort/CheckState/Dispose round out the
lifecycle; TransactionExec in exec.go is a retry shim for the common
begin/do-work/commit-or-abort-and-retry loop.

# Scanning

Iterator walks a Cursor between two EndPointKind-tagged bounds; Scan
resolves the five endpoint kinds (UNBOUND, INCLUSIVE, EXCLUSIVE,
PREFIXED_INCLUSIVE, PREFIXED_EXCLUSIVE) into a concrete inclusive/
exclusive byte range via NextKeySibling before handing off to the
backend's Cursor.
*/
package kv

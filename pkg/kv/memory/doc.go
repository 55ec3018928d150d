/*
Package memory is the in-process backend (1a): an ordered map per storage,
guarded by one coarse reader/writer mutex for the whole database.

	Database ──▶ map[string]*Storage
	                  │
	                  ├─ keys   []string        (sorted, binary-search indexed)
	                  └─ values map[string][]byte

Every transaction takes the database's single RWMutex for its entire
lifetime: SHORT and LONG transactions as a writer lock, whether or not they
end up writing, and READ_ONLY transactions as a reader lock (unless locking
is disabled via DatabaseOptions.Lock); there is no concurrency control
beyond that one lock, which is the point of this backend: a baseline
reference implementation with no persistence and no certification
protocol, fast enough for tests and small single-process callers.
*/
package memory

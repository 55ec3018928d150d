// Package testutil provides the temp-dir helpers and backend-parameterized
// test suite shared by pkg/kv/memory, pkg/kv/lsm, and pkg/kv/cc's _test.go
// files.
package testutil

import (
	"testing"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// Backend names one registered implementation plus whether it needs a
// filesystem location (lsm, cc) or runs purely in memory.
type Backend struct {
	ImplID     string
	Persistent bool
}

// Backends lists every implementation the shared suite should exercise.
// Each backend's _test.go declares its own single entry and calls the Run*
// scenarios with it one test function at a time, so `go test ./pkg/kv/...`
// runs each backend's copy of the suite against only itself.
var Backends = []Backend{
	{ImplID: "memory", Persistent: false},
	{ImplID: "lsm", Persistent: true},
	{ImplID: "cc", Persistent: true},
}

// OpenDatabase opens implID with a fresh temp directory when the backend
// needs one, and registers cleanup to close and dispose it.
func OpenDatabase(t *testing.T, b Backend) *kv.Database {
	t.Helper()
	opts := kv.DatabaseOptions{}
	if b.Persistent {
		opts.Location = t.TempDir()
	}
	db, err := kv.Open(b.ImplID, opts)
	if err != nil {
		t.Fatalf("open %s: %v", b.ImplID, err)
	}
	t.Cleanup(func() {
		db.Close()
		db.Dispose()
	})
	return db
}

// CreateStorage creates a fresh storage under a test-unique name and fails
// the test immediately on any non-OK status.
func CreateStorage(t *testing.T, db *kv.Database, name string) *kv.Storage {
	t.Helper()
	s, status := db.StorageCreate([]byte(name), kv.StorageOptions{})
	if status != kv.StatusOK {
		t.Fatalf("storage_create %s: %s", name, status)
	}
	return s
}

// BeginPrimary begins a transaction of the given type and returns its
// control handle plus borrowed primary data handle.
func BeginPrimary(t *testing.T, db *kv.Database, opts kv.TransactionOptions) (*kv.TransactionControl, *kv.TxHandle) {
	t.Helper()
	tc, status := db.TransactionBegin(opts)
	if status != kv.StatusOK {
		t.Fatalf("transaction_begin: %s", status)
	}
	h, status := tc.BorrowHandle()
	if status != kv.StatusOK {
		t.Fatalf("borrow_handle: %s", status)
	}
	return tc, h
}

// MustCommit commits tc and fails the test on any non-OK status.
func MustCommit(t *testing.T, tc *kv.TransactionControl) {
	t.Helper()
	if status := tc.Commit(); status != kv.StatusOK {
		t.Fatalf("commit: %s", status)
	}
}

// MustPut writes key=value under CREATE_OR_UPDATE and fails the test on
// any non-OK status.
func MustPut(t *testing.T, h *kv.TxHandle, storage *kv.Storage, key, value string) {
	t.Helper()
	if status := h.Put(storage, []byte(key), []byte(value), kv.PutCreateOrUpdate); status != kv.StatusOK {
		t.Fatalf("put %s=%s: %s", key, value, status)
	}
}

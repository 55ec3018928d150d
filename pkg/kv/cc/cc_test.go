package cc_test

import (
	"testing"

	"github.com/tsurugidb/sharksfin-go/internal/testutil"
	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/cc"
)

var backend = testutil.Backend{ImplID: "cc", Persistent: true}

func TestBasicRoundtrip(t *testing.T)  { testutil.RunBasicRoundtrip(t, backend) }
func TestCreateCollision(t *testing.T) { testutil.RunCreateCollision(t, backend) }
func TestPrefixScan(t *testing.T)      { testutil.RunPrefixScan(t, backend) }
func TestRangeScan(t *testing.T)       { testutil.RunRangeScan(t, backend) }
func TestPrefixedExclusiveCombined(t *testing.T) {
	testutil.RunPrefixedExclusiveCombined(t, backend)
}
func TestSequenceDurability(t *testing.T)     { testutil.RunSequenceDurability(t, backend) }
func TestSequenceMonotonicity(t *testing.T)   { testutil.RunSequenceMonotonicity(t, backend) }
func TestScanOrdering(t *testing.T)           { testutil.RunScanOrdering(t, backend) }
func TestBlobAssociation(t *testing.T)        { testutil.RunBlobAssociation(t, backend) }
func TestHandleInvalidation(t *testing.T)     { testutil.RunHandleInvalidation(t, backend) }
func TestStrandRestrictions(t *testing.T)     { testutil.RunStrandRestrictions(t, backend) }
func TestLongTransactionPreserves(t *testing.T) {
	testutil.RunLongTransactionPreserves(t, backend)
}

// TestWriteWithoutWritePreserve confirms a LONG transaction may only write
// to storages it declared up front.
func TestWriteWithoutWritePreserve(t *testing.T) {
	db := testutil.OpenDatabase(t, backend)
	declared := testutil.CreateStorage(t, db, "declared")
	undeclared := testutil.CreateStorage(t, db, "undeclared")

	tc, h := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeLong, WritePreserves: []string{"declared"}})
	defer tc.Dispose()

	if status := h.Put(declared, []byte("a"), []byte("A"), kv.PutCreateOrUpdate); status != kv.StatusOK {
		t.Fatalf("put to declared storage: %s; want OK", status)
	}
	if status := h.Put(undeclared, []byte("b"), []byte("B"), kv.PutCreateOrUpdate); status != kv.StatusErrWriteWithoutWritePreserve {
		t.Fatalf("put to undeclared storage: %s; want ERR_WRITE_WITHOUT_WRITE_PRESERVE", status)
	}
}

// TestReadAreaViolation confirms a READ_ONLY transaction restricted to an
// inclusive read area can't read outside it.
func TestReadAreaViolation(t *testing.T) {
	db := testutil.OpenDatabase(t, backend)
	inArea := testutil.CreateStorage(t, db, "in-area")
	outOfArea := testutil.CreateStorage(t, db, "out-of-area")

	tc, h := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeReadOnly, ReadAreaInclusive: []string{"in-area"}})
	defer tc.Dispose()

	if status := h.CheckExist(inArea, []byte("a")); status != kv.StatusNotFound {
		t.Fatalf("check_exist in declared read area: %s; want NOT_FOUND", status)
	}
	if status := h.CheckExist(outOfArea, []byte("a")); status != kv.StatusErrReadAreaViolation {
		t.Fatalf("check_exist outside read area: %s; want ERR_READ_AREA_VIOLATION", status)
	}
}

// TestOCCConflict confirms a SHORT transaction that read a key is aborted
// retryably if another transaction's commit changes that key before this
// one commits.
func TestOCCConflict(t *testing.T) {
	db := testutil.OpenDatabase(t, backend)
	s := testutil.CreateStorage(t, db, "occ")

	tc0, h0 := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeShort})
	testutil.MustPut(t, h0, s, "k", "v0")
	testutil.MustCommit(t, tc0)
	tc0.Dispose()

	tc1, h1 := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeShort})
	defer tc1.Dispose()
	if _, status := h1.Get(s, []byte("k")); status != kv.StatusOK {
		t.Fatalf("tc1 get: %s", status)
	}

	tc2, h2 := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeShort})
	testutil.MustPut(t, h2, s, "k", "v2")
	testutil.MustCommit(t, tc2)
	tc2.Dispose()

	if status := h1.Put(s, []byte("k"), []byte("v1"), kv.PutCreateOrUpdate); status != kv.StatusOK {
		t.Fatalf("tc1 put: %s", status)
	}
	if status := tc1.Commit(); status != kv.StatusErrAbortedRetryable {
		t.Fatalf("tc1 commit = %s; want ERR_ABORTED_RETRYABLE", status)
	}
}

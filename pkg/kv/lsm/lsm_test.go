package lsm_test

import (
	"testing"

	"github.com/tsurugidb/sharksfin-go/internal/testutil"
	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/lsm"
)

var backend = testutil.Backend{ImplID: "lsm", Persistent: true}

func TestBasicRoundtrip(t *testing.T)  { testutil.RunBasicRoundtrip(t, backend) }
func TestCreateCollision(t *testing.T) { testutil.RunCreateCollision(t, backend) }
func TestPrefixScan(t *testing.T)      { testutil.RunPrefixScan(t, backend) }
func TestRangeScan(t *testing.T)       { testutil.RunRangeScan(t, backend) }
func TestPrefixedExclusiveCombined(t *testing.T) {
	testutil.RunPrefixedExclusiveCombined(t, backend)
}
func TestSequenceDurability(t *testing.T)   { testutil.RunSequenceDurability(t, backend) }
func TestSequenceMonotonicity(t *testing.T) { testutil.RunSequenceMonotonicity(t, backend) }
func TestScanOrdering(t *testing.T)         { testutil.RunScanOrdering(t, backend) }
func TestBlobAssociation(t *testing.T)      { testutil.RunBlobAssociation(t, backend) }
func TestHandleInvalidation(t *testing.T)   { testutil.RunHandleInvalidation(t, backend) }
func TestStrandRestrictions(t *testing.T)   { testutil.RunStrandRestrictions(t, backend) }

// TestReopenPersists confirms the lsm backend actually survives a process
// restart: data written and committed before Close/Dispose is still there
// after Open against the same location.
func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()

	db, err := kv.Open("lsm", kv.DatabaseOptions{Location: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := testutil.CreateStorage(t, db, "persisted")
	tc, h := testutil.BeginPrimary(t, db, kv.TransactionOptions{Type: kv.TransactionTypeShort})
	testutil.MustPut(t, h, s, "k", "v")
	testutil.MustCommit(t, tc)
	tc.Dispose()
	db.Close()
	db.Dispose()

	db2, err := kv.Open("lsm", kv.DatabaseOptions{Location: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() {
		db2.Close()
		db2.Dispose()
	}()

	s2, status := db2.StorageGet([]byte("persisted"))
	if status != kv.StatusOK {
		t.Fatalf("storage_get after reopen: %s", status)
	}
	tc2, h2 := testutil.BeginPrimary(t, db2, kv.TransactionOptions{Type: kv.TransactionTypeShort})
	defer tc2.Dispose()
	value, status := h2.Get(s2, []byte("k"))
	if status != kv.StatusOK || value.ToString() != "v" {
		t.Fatalf("get after reopen = %q, %s; want \"v\", OK", value.ToString(), status)
	}
}

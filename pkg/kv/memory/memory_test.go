package memory_test

import (
	"testing"

	"github.com/tsurugidb/sharksfin-go/internal/testutil"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/memory"
)

var backend = testutil.Backend{ImplID: "memory", Persistent: false}

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

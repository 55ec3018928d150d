package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

func addTxFlags(cmd *cobra.Command) {
	cmd.Flags().String("tx", "short", "Transaction type (short, long, read-only)")
	cmd.Flags().StringSlice("write-preserve", nil, "Storages this LONG transaction will write (repeatable)")
}

func beginTxType(cmd *cobra.Command) (kv.TransactionType, []string, error) {
	kind, _ := cmd.Flags().GetString("tx")
	txType, err := parseTransactionType(kind)
	if err != nil {
		return 0, nil, err
	}
	wp, _ := cmd.Flags().GetStringSlice("write-preserve")
	return txType, wp, nil
}

var putCmd = &cobra.Command{
	Use:   "put STORAGE KEY VALUE",
	Short: "Write an entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		op, err := parsePutOperation(mode)
		if err != nil {
			return err
		}
		blobFlag, _ := cmd.Flags().GetString("blob-ids")
		blobIDs, err := parseBlobIDs(blobFlag)
		if err != nil {
			return err
		}
		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}
		return withStorage(cmd, args[0], wp, txType, func(_ *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode) {
			var status kv.StatusCode
			if len(blobIDs) > 0 {
				status = h.PutWithBlobs(storage, []byte(args[1]), []byte(args[2]), op, blobIDs)
			} else {
				status = h.Put(storage, []byte(args[1]), []byte(args[2]), op)
			}
			return fmt.Sprintf("✓ Put %s/%s", args[0], args[1]), status
		})
	},
}

// parseBlobIDs parses a comma-separated list of BLOB reference identifiers,
// e.g. "1,2,3". An empty string yields no ids.
func parseBlobIDs(raw string) ([]uint64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --blob-ids value %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var getBlobIDsCmd = &cobra.Command{
	Use:   "blob-ids STORAGE KEY",
	Short: "Read the BLOB reference identifiers recorded against an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}
		return withStorage(cmd, args[0], wp, txType, func(_ *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode) {
			ids, status := h.GetBlobIDs(storage, []byte(args[1]))
			if status != kv.StatusOK {
				return "", status
			}
			if len(ids) == 0 {
				return "(no blob ids)", kv.StatusOK
			}
			strs := make([]string, len(ids))
			for i, id := range ids {
				strs[i] = strconv.FormatUint(id, 10)
			}
			return strings.Join(strs, ","), kv.StatusOK
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get STORAGE KEY",
	Short: "Read an entry's value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}
		return withStorage(cmd, args[0], wp, txType, func(_ *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode) {
			value, status := h.Get(storage, []byte(args[1]))
			if status != kv.StatusOK {
				return "", status
			}
			return value.ToString(), kv.StatusOK
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete STORAGE KEY",
	Short: "Remove an entry, if present",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}
		return withStorage(cmd, args[0], wp, txType, func(_ *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode) {
			status := h.Delete(storage, []byte(args[1]))
			return fmt.Sprintf("✓ Deleted %s/%s", args[0], args[1]), status
		})
	},
}

var checkExistCmd = &cobra.Command{
	Use:   "check-exist STORAGE KEY",
	Short: "Report whether an entry exists, without reading its value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}
		return withStorage(cmd, args[0], wp, txType, func(_ *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode) {
			status := h.CheckExist(storage, []byte(args[1]))
			if status != kv.StatusOK {
				return "", status
			}
			return "exists", kv.StatusOK
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan STORAGE",
	Short: "Range-scan a storage's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		beginKey, _ := cmd.Flags().GetString("begin")
		beginKindFlag, _ := cmd.Flags().GetString("begin-kind")
		endKey, _ := cmd.Flags().GetString("end")
		endKindFlag, _ := cmd.Flags().GetString("end-kind")
		limit, _ := cmd.Flags().GetInt("limit")
		reverse, _ := cmd.Flags().GetBool("reverse")

		beginKind, err := parseEndPointKind(beginKindFlag)
		if err != nil {
			return err
		}
		endKind, err := parseEndPointKind(endKindFlag)
		if err != nil {
			return err
		}

		txType, wp, err := beginTxType(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		tc, status := db.TransactionBegin(kv.TransactionOptions{Type: txType, WritePreserves: wp})
		if status != kv.StatusOK {
			return statusErr("transaction_begin", status)
		}
		defer tc.Dispose()

		h, status := tc.BorrowHandle()
		if status != kv.StatusOK {
			return statusErr("borrow_handle", status)
		}

		storage, status := db.StorageGet([]byte(args[0]))
		if status != kv.StatusOK {
			return statusErr("storage_get", status)
		}

		it, status := h.Scan(storage, []byte(beginKey), beginKind, []byte(endKey), endKind, limit, reverse)
		if status != kv.StatusOK {
			return statusErr("scan", status)
		}
		defer it.Dispose()

		count := 0
		for {
			status = it.Next()
			if status == kv.StatusNotFound {
				break
			}
			if status != kv.StatusOK {
				return statusErr("scan_next", status)
			}
			fmt.Printf("%s\t%s\n", it.Key().ToString(), it.Value().ToString())
			count++
		}

		if status = tc.Commit(); status != kv.StatusOK {
			return statusErr("commit", status)
		}
		if count == 0 {
			fmt.Println("No entries found")
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{putCmd, getCmd, deleteCmd, checkExistCmd, scanCmd, getBlobIDsCmd} {
		addTxFlags(c)
	}
	putCmd.Flags().String("mode", "create-or-update", "Put semantics (create, update, create-or-update)")
	putCmd.Flags().String("blob-ids", "", "Comma-separated BLOB reference identifiers to record alongside the value (put_with_blobs)")

	scanCmd.Flags().String("begin", "", "Scan lower bound key")
	scanCmd.Flags().String("begin-kind", "unbound", "Lower bound kind (unbound, inclusive, exclusive, prefix-inclusive, prefix-exclusive)")
	scanCmd.Flags().String("end", "", "Scan upper bound key")
	scanCmd.Flags().String("end-kind", "unbound", "Upper bound kind (unbound, inclusive, exclusive, prefix-inclusive, prefix-exclusive)")
	scanCmd.Flags().Int("limit", 0, "Maximum entries to return (0 means unlimited)")
	scanCmd.Flags().Bool("reverse", false, "Scan from high to low")
}

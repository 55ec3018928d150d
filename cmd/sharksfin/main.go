// Command sharksfin is a thin CLI front-end over pkg/kv: option parsing and
// exit-code mapping only. It opens a fresh database for every
// invocation, runs one short-lived operation (or, for apply, one batch) as
// a single transaction, and exits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/cc"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/lsm"
	_ "github.com/tsurugidb/sharksfin-go/pkg/kv/memory"
	"github.com/tsurugidb/sharksfin-go/pkg/kvlog"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sharksfin",
	Short: "Command-line front end for the sharksfin-go KV façade",
	Long: `sharksfin drives pkg/kv's Database/Storage/Transaction façade from the
shell: open a backend, manage storages, and read or write entries one
transaction at a time.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("sharksfin version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("impl", "memory", "Backend implementation (memory, lsm, cc)")
	rootCmd.PersistentFlags().String("location", "./sharksfin-data", "Data directory for persistent backends (lsm, cc)")
	rootCmd.PersistentFlags().Bool("perf", false, "Enable call-count/timing metrics collection")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(checkExistCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(getBlobIDsCmd)
	rootCmd.AddCommand(sequenceCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	kvlog.Init(kvlog.Config{
		Level:      kvlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// openDatabase opens the backend named by --impl with the options common to
// every subcommand. Callers defer Close/Dispose.
func openDatabase(cmd *cobra.Command) (*kv.Database, error) {
	impl, _ := cmd.Flags().GetString("impl")
	location, _ := cmd.Flags().GetString("location")
	perf, _ := cmd.Flags().GetBool("perf")

	db, err := kv.Open(impl, kv.DatabaseOptions{Location: location, Perf: perf})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", impl, err)
	}
	return db, nil
}

func closeDatabase(db *kv.Database) {
	db.Close()
	db.Dispose()
}

// statusErr turns a non-OK StatusCode into the error RunE returns, so
// cobra's own "Error: ..." reporting carries the status label and main
// exits 1.
func statusErr(op string, status kv.StatusCode) error {
	if status.IsOK() {
		return nil
	}
	return fmt.Errorf("%s: %s", op, status)
}

func parsePutOperation(mode string) (kv.PutOperation, error) {
	switch mode {
	case "", "create-or-update":
		return kv.PutCreateOrUpdate, nil
	case "create":
		return kv.PutCreate, nil
	case "update":
		return kv.PutUpdate, nil
	default:
		return kv.PutCreateOrUpdate, fmt.Errorf("unknown --mode %q", mode)
	}
}

func parseTransactionType(kind string) (kv.TransactionType, error) {
	switch kind {
	case "", "short":
		return kv.TransactionTypeShort, nil
	case "long":
		return kv.TransactionTypeLong, nil
	case "read-only":
		return kv.TransactionTypeReadOnly, nil
	default:
		return kv.TransactionTypeShort, fmt.Errorf("unknown --tx %q", kind)
	}
}

func parseEndPointKind(kind string) (kv.EndPointKind, error) {
	switch kind {
	case "", "unbound":
		return kv.EndPointUnbound, nil
	case "inclusive":
		return kv.EndPointInclusive, nil
	case "exclusive":
		return kv.EndPointExclusive, nil
	case "prefix-inclusive":
		return kv.EndPointPrefixedInclusive, nil
	case "prefix-exclusive":
		return kv.EndPointPrefixedExclusive, nil
	default:
		return kv.EndPointUnbound, fmt.Errorf("unknown endpoint kind %q", kind)
	}
}

// withStorage begins a transaction of the requested type, resolves name to
// a *kv.Storage, runs fn against the transaction's primary handle, and
// commits (or aborts, on failure) before returning.
func withStorage(cmd *cobra.Command, name string, writePreserves []string, txType kv.TransactionType, fn func(db *kv.Database, h *kv.TxHandle, storage *kv.Storage) (string, kv.StatusCode)) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	tc, status := db.TransactionBegin(kv.TransactionOptions{Type: txType, WritePreserves: writePreserves})
	if status != kv.StatusOK {
		return statusErr("transaction_begin", status)
	}
	defer tc.Dispose()

	h, status := tc.BorrowHandle()
	if status != kv.StatusOK {
		return statusErr("borrow_handle", status)
	}

	storage, status := db.StorageGet([]byte(name))
	if status != kv.StatusOK {
		return statusErr("storage_get", status)
	}

	out, status := fn(db, h, storage)
	if status != kv.StatusOK {
		tc.Abort(true)
		return statusErr("content", status)
	}
	if status = tc.Commit(); status != kv.StatusOK {
		return statusErr("commit", status)
	}
	if out != "" {
		fmt.Println(out)
	}
	return nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Manage durable sequence counters",
}

var sequenceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Allocate a new sequence id",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		id, status := db.SequenceCreate()
		if status != kv.StatusOK {
			return statusErr("sequence_create", status)
		}
		fmt.Println(uint64(id))
		return nil
	},
}

var sequencePutCmd = &cobra.Command{
	Use:   "put ID VERSION VALUE",
	Short: "Record a (version, value) pair, durable with its transaction",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse ID: %w", err)
		}
		version, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse VERSION: %w", err)
		}
		value, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse VALUE: %w", err)
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		tc, status := db.TransactionBegin(kv.TransactionOptions{Type: kv.TransactionTypeShort})
		if status != kv.StatusOK {
			return statusErr("transaction_begin", status)
		}
		defer tc.Dispose()

		h, status := tc.BorrowHandle()
		if status != kv.StatusOK {
			return statusErr("borrow_handle", status)
		}

		if status = h.SequencePut(kv.SequenceID(id), version, value); status != kv.StatusOK {
			tc.Abort(true)
			return statusErr("sequence_put", status)
		}
		if status = tc.Commit(); status != kv.StatusOK {
			return statusErr("commit", status)
		}
		fmt.Printf("✓ Sequence %d updated to version %d\n", id, version)
		return nil
	},
}

var sequenceGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Read a sequence's highest durable (version, value) pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse ID: %w", err)
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		version, value, status := db.SequenceGet(kv.SequenceID(id))
		if status != kv.StatusOK {
			return statusErr("sequence_get", status)
		}
		fmt.Printf("version: %d\nvalue: %d\n", version, value)
		return nil
	},
}

var sequenceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse ID: %w", err)
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if status := db.SequenceDelete(kv.SequenceID(id)); status != kv.StatusOK {
			return statusErr("sequence_delete", status)
		}
		fmt.Printf("✓ Sequence deleted: %d\n", id)
		return nil
	},
}

func init() {
	sequenceCmd.AddCommand(sequenceCreateCmd, sequencePutCmd, sequenceGetCmd, sequenceDeleteCmd)
}

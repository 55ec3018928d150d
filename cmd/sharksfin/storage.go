package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage named storages",
}

var storageCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a new storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, _ := cmd.Flags().GetString("payload")
		id, _ := cmd.Flags().GetUint64("id")

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		_, status := db.StorageCreate([]byte(args[0]), kv.StorageOptions{StorageID: id, Payload: []byte(payload)})
		if status != kv.StatusOK {
			return statusErr("storage_create", status)
		}
		fmt.Printf("✓ Storage created: %s\n", args[0])
		return nil
	},
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered storages",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		names, status := db.StorageList()
		if status != kv.StatusOK {
			return statusErr("storage_list", status)
		}
		if len(names) == 0 {
			fmt.Println("No storages found")
			return nil
		}
		for _, n := range names {
			fmt.Println(string(n))
		}
		return nil
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a storage and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		s, status := db.StorageGet([]byte(args[0]))
		if status != kv.StatusOK {
			return statusErr("storage_get", status)
		}
		if status = db.StorageDelete(s); status != kv.StatusOK {
			return statusErr("storage_delete", status)
		}
		db.StorageDispose(s)
		fmt.Printf("✓ Storage deleted: %s\n", args[0])
		return nil
	},
}

var storageGetOptionsCmd = &cobra.Command{
	Use:   "get-options NAME",
	Short: "Print a storage's id and opaque payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		s, status := db.StorageGet([]byte(args[0]))
		if status != kv.StatusOK {
			return statusErr("storage_get", status)
		}
		opts, status := db.StorageGetOptions(s)
		if status != kv.StatusOK {
			return statusErr("storage_get_options", status)
		}
		fmt.Printf("id: %d\n", s.ID())
		fmt.Printf("payload: %s\n", string(opts.Payload))
		return nil
	},
}

var storageSetOptionsCmd = &cobra.Command{
	Use:   "set-options NAME",
	Short: "Replace a storage's opaque payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, _ := cmd.Flags().GetString("payload")

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		s, status := db.StorageGet([]byte(args[0]))
		if status != kv.StatusOK {
			return statusErr("storage_get", status)
		}
		if status = db.StorageSetOptions(s, kv.StorageOptions{Payload: []byte(payload)}); status != kv.StatusOK {
			return statusErr("storage_set_options", status)
		}
		fmt.Printf("✓ Storage options updated: %s\n", args[0])
		return nil
	},
}

func init() {
	storageCreateCmd.Flags().String("payload", "", "Opaque payload attached to the storage record")
	storageCreateCmd.Flags().Uint64("id", 0, "Request a specific storage id (0 assigns one)")
	storageSetOptionsCmd.Flags().String("payload", "", "Opaque payload attached to the storage record")

	storageCmd.AddCommand(storageCreateCmd, storageListCmd, storageDeleteCmd, storageGetOptionsCmd, storageSetOptionsCmd)
}

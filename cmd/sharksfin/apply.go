package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tsurugidb/sharksfin-go/pkg/kv"
)

// manifest is the declarative shape accepted by `sharksfin apply`: a list of
// storages to ensure exist, each with initial entries to write.
type manifest struct {
	Storages []struct {
		Name    string            `yaml:"name"`
		Payload string            `yaml:"payload"`
		Entries map[string]string `yaml:"entries"`
	} `yaml:"storages"`
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a storage/entry manifest in one transaction",
	Long: `Apply creates any storage named in the manifest that doesn't already exist
and writes its listed entries, all inside a single transaction.

Example manifest:
  storages:
    - name: accounts
      entries:
        alice: "100"
        bob: "50"`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	names := make([]string, len(m.Storages))
	for i, s := range m.Storages {
		names[i] = s.Name
	}

	opts := kv.TransactionOptions{Type: kv.TransactionTypeLong, WritePreserves: names}
	status := kv.TransactionExec(db, opts, 0, func(h *kv.TxHandle) kv.ExecOutcome {
		for _, s := range m.Storages {
			storage, status := h.StorageGet([]byte(s.Name))
			if status == kv.StatusNotFound {
				storage, status = h.StorageCreate([]byte(s.Name), kv.StorageOptions{Payload: []byte(s.Payload)})
			}
			if status != kv.StatusOK {
				return kv.ExecError
			}
			for k, v := range s.Entries {
				if status := h.Put(storage, []byte(k), []byte(v), kv.PutCreateOrUpdate); status != kv.StatusOK {
					if status.IsRetryableAbort() {
						return kv.ExecRetry
					}
					return kv.ExecError
				}
			}
		}
		return kv.ExecCommit
	})
	if status != kv.StatusOK {
		return statusErr("apply", status)
	}

	fmt.Printf("✓ Applied %d storage(s) from %s\n", len(m.Storages), path)
	return nil
}

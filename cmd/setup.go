package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/santileortiz/dhtfs/internal/store"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

var setupCmd = &cobra.Command{
	Use:   "setup <root>",
	Short: "Initialize the persisted tag index and sequence counter under root",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().Bool("force", false, "Wipe any existing content under root before reinitializing.")
}

// runSetup matches the original's Dhtfs.setup: with --force, recursively
// wipe root's existing content (topdown=False removal, i.e. children before
// their parent) before creating fresh, empty persisted stores.
func runSetup(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating root: %w", err)
	}

	if force {
		if err := wipeDir(root); err != nil {
			return fmt.Errorf("wiping %s: %w", root, err)
		}
	}

	idxAdapter, err := store.Open(filepath.Join(root, tagIndexFile))
	if err != nil {
		return fmt.Errorf("opening tag index: %w", err)
	}
	defer idxAdapter.Close()

	idx := tagindex.New(idxAdapter)
	if err := idx.Init(force); err != nil {
		return fmt.Errorf("initializing tag index: %w", err)
	}

	seqAdapter, err := store.Open(filepath.Join(root, seqCounterFile))
	if err != nil {
		return fmt.Errorf("opening sequence counter: %w", err)
	}
	defer seqAdapter.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "initialized dhtfs root at %s\n", root)
	return nil
}

// wipeDir removes every entry under dir, but keeps dir itself (it hosts the
// two backing store files setup is about to (re)create).
func wipeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dexhq/dex/internal/core"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a dex workspace",
	Long: `Initialize a dex workspace in the given directory (default: the
current directory). This creates the .dex/ store directory and writes a
.dexconfig file with the default settings.

Safe to run on an existing workspace -- an existing .dexconfig is left
untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		absPath, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		storeDir := filepath.Join(absPath, ".dex")
		if err := os.MkdirAll(storeDir, 0o750); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}

		cfgMgr := core.NewConfigurationManager(absPath)
		switch err := cfgMgr.WriteDefaultConfig(); {
		case err == nil:
			fmt.Printf("Initialized dex workspace in %s\n", absPath)
		case errors.Is(err, os.ErrExist):
			fmt.Printf("Workspace already initialized in %s\n", absPath)
		default:
			return fmt.Errorf("writing default config: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// Command robospec validates, normalizes and repairs generated Isaac Lab
// environment configs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"robospec/internal/config"
	"robospec/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonLogs   bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "robospec",
	Short: "Structural validation and bounded self-repair for Isaac Lab env configs",
	Long: `robospec checks generated Isaac Lab manager-based environment configs.

The local pass is deterministic: imports and robot configs are normalized for
the task category, known wrong MDP names are corrected, and the result is
validated against structural rules and the Isaac Lab API surface. Configs that
still fail can be sent back to the model a bounded number of times.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		lc := logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON || jsonLogs, Categories: cfg.Logging.Categories}
		if verbose {
			lc.Level = "debug"
		}
		if err := logging.Initialize(lc); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "robospec.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

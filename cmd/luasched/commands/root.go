package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "luasched",
	Short: "Cooperative scheduler for Lua scripts",
	Long: `luasched - run Lua scripts on a cooperative thread scheduler.

Scripts can spawn and defer threads, sleep, wait for each other's results,
and read or write a key-value store without blocking the scheduler.

Examples:
  # Run a script
  luasched run main.lua

  # Pass arguments and persist kv data
  luasched run --kv-dir ./data main.lua -- alice bob

  # Use a config file
  luasched --config luasched.yaml run main.lua`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError carries a script's non-zero exit code to main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

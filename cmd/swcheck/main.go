package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	cfgFile   string
	namesFile string
	dryRun    bool
	assumeYes bool
	exportOut string
)

var rootCmd = &cobra.Command{
	Use:           "swcheck",
	Short:         "Find and remove installed Windows software",
	Long:          `swcheck - look up installed software by name in the uninstall registry and program folders, and remove it`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var queryCmd = &cobra.Command{
	Use:   "query [names...]",
	Short: "Report whether each named product is installed",
	Long: `Report whether each named product is installed and where.

Names come from the arguments, from --file, or one per line on stdin.
A name matches any product whose display name contains it, ignoring case.`,
	RunE: runQuery,
}

var removeCmd = &cobra.Command{
	Use:   "remove [names...]",
	Short: "Remove each named product that is installed",
	RunE:  runRemove,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a YAML snapshot of the uninstall registry",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "swcheck v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is swcheck.yaml in the config dir or .)")

	for _, cmd := range []*cobra.Command{queryCmd, removeCmd} {
		cmd.Flags().StringVarP(&namesFile, "file", "f", "", "read names from file, one per line")
	}
	removeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without changing anything")
	removeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "confirm removal")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write the snapshot to this file instead of stdout")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

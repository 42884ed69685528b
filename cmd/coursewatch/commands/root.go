package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:   "coursewatch",
	Short: "coursewatch watches the WMG 2025 warm-up course listing and alerts when registration opens.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initSlog(verbose)
		if dumpHttp != "" {
			initHttpDump(dumpHttp)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file, a .local sibling overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every telegram and site probe exchange into this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "settled",
		Short: "Settlement engine runner for the economic simulation",
		Long: `settled builds an economy from a YAML config and drives the
settlement engine from cron: every tick applies the configured commands and
reconciles the M2 money supply.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "configs/config.yaml", "Path to the YAML config (CONFIG_PATH overrides)")

	rootCmd.AddCommand(
		newRunCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "settled version %s\n", version)
		},
	}
}

func configPath(cmd *cobra.Command) string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	p, _ := cmd.Flags().GetString("config")
	return p
}

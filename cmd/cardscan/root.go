package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-scanner/internal/bootstrap"
	"github.com/codyseavey/tcg-scanner/internal/config"
)

var version = "dev"

// commandContext carries the persistent flags and builds the app on first use
type commandContext struct {
	configPath string
	jsonOutput bool
	debug      bool
}

func (c *commandContext) openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, _, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.debug {
		cfg.Scan.Debug = true
	}
	return bootstrap.New(ctx, cfg)
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "cardscan",
		Short:         "Scan, identify and price Pokemon cards from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "scanner.toml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&cc.jsonOutput, "json", false, "Output JSON even on a terminal")
	rootCmd.PersistentFlags().BoolVar(&cc.debug, "debug", false, "Log per-scan details")

	rootCmd.AddCommand(newScanCommand(cc))
	rootCmd.AddCommand(newParseCommand(cc))
	rootCmd.AddCommand(newPriceCommand(cc))
	rootCmd.AddCommand(newHistoryCommand(cc))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return rootCmd
}

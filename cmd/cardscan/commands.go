package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-scanner/internal/models"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

func newScanCommand(cc *commandContext) *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Read a card photo, validate it and look up prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			img := models.ScanImage{URI: args[0], Base64: base64.StdEncoding.EncodeToString(data)}
			result, err := app.Pipeline.RunScan(cmd.Context(), img, func(p models.ScanProgress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%3.0f%%] %s\n", p.Fraction*100, p.Label)
			})
			if err != nil {
				return err
			}

			var scanID string
			if !noSave {
				var imageData []byte
				if app.Config.Storage.KeepImages {
					imageData = data
				}
				record, err := app.History.Record(cmd.Context(), result, imageData)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: scan not saved: %v\n", err)
				} else {
					scanID = record.ID
				}
			}

			summary := services.NormalizePrices(result.Prices)
			if cc.useJSON(cmd) {
				return writeJSON(cmd, map[string]interface{}{
					"scan_id":       scanID,
					"result":        result,
					"price_summary": summary,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderScanResult(result, summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the scan in history")
	return cmd
}

func newParseCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text-file>",
		Short: "Parse OCR text into card fields (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}

			info := services.ParseCardText(string(raw))
			if cc.useJSON(cmd) {
				return writeJSON(cmd, info)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCardInfo(info))
			return nil
		},
	}
}

func newPriceCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "price <name> [set-number]",
		Short: "Look up market prices for a card",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := models.CardInfo{Name: strings.TrimSpace(args[0])}
			if len(args) > 1 {
				info.SetNumber = strings.TrimSpace(args[1])
			}

			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			prices, err := app.Prices.GetPrices(cmd.Context(), info)
			if err != nil {
				return err
			}
			if prices == nil {
				return fmt.Errorf("no prices found for %s", info.Name)
			}

			summary := services.NormalizePrices(prices)
			if cc.useJSON(cmd) {
				return writeJSON(cmd, map[string]interface{}{"prices": prices, "price_summary": summary})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderPrices(prices, summary))
			return nil
		},
	}
}

func newHistoryCommand(cc *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if cc.useJSON(cmd) {
				return writeJSON(cmd, records)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of scans to show")
	return cmd
}

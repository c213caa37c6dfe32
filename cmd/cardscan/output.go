package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/codyseavey/tcg-scanner/internal/models"
	"github.com/codyseavey/tcg-scanner/internal/services"
)

// useJSON is true when --json is set or stdout is not a terminal
func (c *commandContext) useJSON(cmd *cobra.Command) bool {
	return c.jsonOutput || !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *p)
}

func renderCardInfo(info models.CardInfo) string {
	tw := newTable("Card")
	tw.AppendRows([]table.Row{
		{"Name", info.Name},
		{"Set number", info.SetNumber},
		{"HP", info.HP},
		{"Type", info.Type},
		{"Rarity", info.Rarity},
	})
	if info.SetName != "" {
		tw.AppendRow(table.Row{"Set", info.SetName})
	}
	for _, a := range info.Attacks {
		tw.AppendRow(table.Row{"Attack", strings.TrimSpace(a.Name + " " + a.Damage)})
	}
	if info.Weakness != "" {
		tw.AppendRow(table.Row{"Weakness", info.Weakness})
	}
	if info.Artist != "" {
		tw.AppendRow(table.Row{"Artist", info.Artist})
	}
	return tw.Render() + "\n"
}

func renderScanResult(result *models.ScanResult, summary services.PriceSummary) string {
	var b strings.Builder
	b.WriteString(renderCardInfo(result.CardInfo))

	tw := newTable("Result")
	validated := "not found"
	if v := result.ValidatedCard; v != nil {
		validated = fmt.Sprintf("%s (%s, %s)", v.Name, v.ID, v.Set.Name)
	}
	verdict := text.FgGreen.Sprint("authentic")
	if !result.Authenticity.IsAuthentic {
		verdict = text.FgRed.Sprint("suspect")
	}
	tw.AppendRows([]table.Row{
		{"Validated", validated},
		{"Authenticity", fmt.Sprintf("%s (%.0f%%)", verdict, result.Authenticity.Confidence*100)},
		{"Market price", formatPrice(summary.MarketPrice)},
	})
	for _, issue := range result.Authenticity.Issues {
		tw.AppendRow(table.Row{"Issue", issue})
	}
	b.WriteString(tw.Render() + "\n")

	if result.Prices != nil {
		b.WriteString(renderPrices(result.Prices, summary))
	}
	return b.String()
}

func renderPrices(prices *models.CardPrices, summary services.PriceSummary) string {
	tw := newTable("Prices: " + prices.CardName)
	tw.AppendHeader(table.Row{"Source", "Price", "Details"})
	for _, s := range prices.Sources {
		price := "-"
		if v, ok := services.ExtractSourcePrice(s); ok {
			price = fmt.Sprintf("$%.2f", v)
		}
		tw.AppendRow(table.Row{s.Source, price, formatKeyed(s.Prices)})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Market", formatPrice(summary.MarketPrice), fmt.Sprintf("range %s - %s", formatPrice(summary.Low), formatPrice(summary.High))})
	if len(prices.GradedPrices) > 0 {
		tw.AppendRow(table.Row{"Graded", "", formatKeyed(prices.GradedPrices)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return tw.Render() + "\n"
}

func renderHistory(records []models.ScanRecord) string {
	tw := newTable("Recent scans")
	tw.AppendHeader(table.Row{"Scanned", "Card", "Set #", "Authentic", "Market", "ID"})
	for _, r := range records {
		authentic := "no"
		if r.IsAuthentic {
			authentic = "yes"
		}
		tw.AppendRow(table.Row{
			r.ScannedAt.Local().Format("2006-01-02 15:04"),
			r.CardName,
			r.SetNumber,
			authentic,
			formatPrice(r.MarketPrice),
			r.ID,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
	return tw.Render() + "\n"
}

func formatKeyed(values map[string]float64) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s $%.2f", k, values[k]))
	}
	return strings.Join(parts, ", ")
}

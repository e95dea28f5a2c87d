package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and export the trade ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded fills",
	RunE:  runLedgerList,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export fills to CSV",
	RunE:  runLedgerExport,
}

var ledgerPnlCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Show today's realized P&L and trade count",
	RunE:  runLedgerPnl,
}

var (
	llSymbol string
	llSince  string
	leOutput string
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)
	ledgerCmd.AddCommand(ledgerPnlCmd)

	ledgerListCmd.Flags().StringVarP(&llSymbol, "symbol", "s", "", "only fills for this symbol")
	ledgerListCmd.Flags().StringVar(&llSince, "since", "", "only fills at or after this RFC3339 time")

	ledgerExportCmd.Flags().StringVarP(&leOutput, "output", "o", "trades.csv", "output CSV path")
	ledgerExportCmd.Flags().StringVarP(&llSymbol, "symbol", "s", "", "only fills for this symbol")
}

func openLedger() (*ledger.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ledger.NewSQLite(cfg.Resolve(cfg.Paths.LedgerDB))
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	var rows []ledger.TradeRecord
	switch {
	case llSymbol != "":
		rows, err = led.BySymbol(llSymbol)
	case llSince != "":
		var since time.Time
		since, err = time.Parse(time.RFC3339, llSince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
		rows, err = led.Since(since)
	default:
		rows, err = led.Since(time.Time{})
	}
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "TOTAL", "STRATEGY"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Symbol, r.Side, r.Qty,
			r.Price.StringFixed(2), r.Total.StringFixed(2),
			r.StrategyID,
		})
	}
	t.Render()
	return nil
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	if err := led.ExportCSV(leOutput, llSymbol); err != nil {
		return err
	}
	fmt.Printf("exported ledger to %s\n", leOutput)
	return nil
}

func runLedgerPnl(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	pnl, err := led.RealizedPnLToday()
	if err != nil {
		return err
	}
	count, err := led.TradeCountToday()
	if err != nil {
		return err
	}

	fmt.Printf("realized P&L today: %s (%d fills)\n", pnl.StringFixed(2), count)
	return nil
}

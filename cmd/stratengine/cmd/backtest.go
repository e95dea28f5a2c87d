package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/backtest"
	"github.com/rustyeddy/stratengine/config"
	"github.com/rustyeddy/stratengine/guard"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a strategy against historical bars",
	Long: `Backtest replays OHLC bars through the same evaluator and
executor the live engine uses, against a simulated account. Results
are persisted and can be listed and inspected later.

The bar file is CSV with a "time,open,high,low,close,volume" header;
time is RFC3339 or unix seconds.

Example:
  stratengine backtest run --strategy <id> --bars data/aapl.csv --capital 100000`,
}

var backtestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest",
	RunE:  runBacktest,
}

var backtestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backtest results, newest first",
	RunE:  runBacktestList,
}

var backtestShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored result in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktestShow,
}

var backtestRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a stored result",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktestRm,
}

var (
	btStrategyID string
	btBarsPath   string
	btCapital    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestListCmd)
	backtestCmd.AddCommand(backtestShowCmd)
	backtestCmd.AddCommand(backtestRmCmd)

	backtestRunCmd.Flags().StringVarP(&btStrategyID, "strategy", "s", "", "strategy id to replay (required)")
	backtestRunCmd.Flags().StringVarP(&btBarsPath, "bars", "b", "", "path to OHLC bar CSV (required)")
	backtestRunCmd.Flags().StringVarP(&btCapital, "capital", "c", "100000", "initial capital")

	backtestRunCmd.MarkFlagRequired("strategy")
	backtestRunCmd.MarkFlagRequired("bars")
}

func backtestService(cfg *config.Config) *backtest.Service {
	// A zero per-window count disables the rate limit, matching the
	// safety limits convention.
	var limiter *guard.Limiter
	if cfg.Guard.BacktestsPerWindow > 0 {
		limiter = guard.NewLimiter(cfg.Guard.BacktestsPerWindow, cfg.BacktestWindow())
	}
	return &backtest.Service{
		Engine:  backtest.NewEngine(newLogger()),
		Store:   backtest.NewStore(cfg.Resolve(cfg.Paths.Backtests)),
		Limiter: limiter,
		Timeout: cfg.BacktestTimeout(),
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	capital, err := decimal.NewFromString(btCapital)
	if err != nil {
		return fmt.Errorf("parse --capital: %w", err)
	}

	strat, err := strategy.NewStore(cfg.Resolve(cfg.Paths.Strategies)).Get(btStrategyID)
	if err != nil {
		return err
	}

	bars, err := market.LoadBarsCSV(btBarsPath)
	if err != nil {
		return err
	}

	res, err := backtestService(cfg).Run(cmd.Context(), strat, bars, capital)
	if err != nil {
		return err
	}

	printResult(res)
	return nil
}

func runBacktestList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	results, err := backtest.NewStore(cfg.Resolve(cfg.Paths.Backtests)).List()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "SYMBOL", "TYPE", "RETURN %", "TRADES", "WIN %", "DRAWDOWN", "PHASE", "RAN"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.ID, r.Symbol, r.Type,
			r.TotalReturnPct.StringFixed(3), r.Trades,
			fmt.Sprintf("%.1f", r.WinRate),
			r.MaxDrawdown.StringFixed(2),
			r.FinalPhase,
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	return nil
}

func runBacktestShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := backtest.NewStore(cfg.Resolve(cfg.Paths.Backtests)).Load(args[0])
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runBacktestRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := backtest.NewStore(cfg.Resolve(cfg.Paths.Backtests)).Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted backtest %s\n", args[0])
	return nil
}

func printResult(res *backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRow(table.Row{"Run", res.ID})
	t.AppendRow(table.Row{"Strategy", fmt.Sprintf("%s (%s %s)", res.StrategyID, res.Type, res.Symbol)})
	t.AppendRow(table.Row{"Final phase", res.FinalPhase})
	t.AppendRow(table.Row{"Bars", res.BarsProcessed})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Initial capital", res.InitialCapital.StringFixed(2)})
	t.AppendRow(table.Row{"Final equity", res.FinalEquity.StringFixed(2)})
	t.AppendRow(table.Row{"Total return", res.TotalReturnPct.StringFixed(3) + "%"})
	t.AppendRow(table.Row{"Max drawdown", res.MaxDrawdown.StringFixed(2)})
	t.AppendRow(table.Row{"Trades", res.Trades})
	t.AppendRow(table.Row{"Win rate", fmt.Sprintf("%.1f%%", res.WinRate)})
	pf := "n/a"
	if res.ProfitFactor != nil {
		pf = fmt.Sprintf("%.2f", *res.ProfitFactor)
	}
	t.AppendRow(table.Row{"Profit factor", pf})
	t.Render()

	if res.Notes != "" {
		fmt.Printf("notes: %s\n", res.Notes)
	}
}

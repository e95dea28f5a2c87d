package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/strategy"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage strategy definitions",
	Long: `Create, inspect, pause, and remove strategies.

A strategy describes one automated position: how to enter, and the
exit style (trailing stop, bracket, scale-out, grid, or pullback
trailing). The engine picks up enabled strategies on its next poll.

Examples:
  stratengine strategy add --symbol AAPL --type TRAILING_STOP --qty 10 --trail 5
  stratengine strategy add --symbol MSFT --type BRACKET --qty 5 --entry limit --entry-price 400 --take-profit 10 --stop-loss 5
  stratengine strategy list
  stratengine strategy pause <id>`,
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all strategies",
	RunE:  runStrategyList,
}

var strategyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a strategy",
	RunE:  runStrategyAdd,
}

var strategyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyRm,
}

var strategyPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a strategy",
	Long: `Pause halts evaluation without touching broker orders. Resting
orders stay working at the broker while the strategy is paused.`,
	Args: cobra.ExactArgs(1),
	RunE: runStrategyPause,
}

var strategyResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyResume,
}

var (
	saSymbol     string
	saType       string
	saQty        string
	saEntry      string
	saEntryPrice string
	saCondition  string
	saTrail      string
	saTakeProfit string
	saStopLoss   string
	saPullback   string
	saTranches   string
	saGridLow    string
	saGridHigh   string
	saLevels     int
	saLevelQty   string
)

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyListCmd)
	strategyCmd.AddCommand(strategyAddCmd)
	strategyCmd.AddCommand(strategyRmCmd)
	strategyCmd.AddCommand(strategyPauseCmd)
	strategyCmd.AddCommand(strategyResumeCmd)

	strategyAddCmd.Flags().StringVarP(&saSymbol, "symbol", "s", "", "instrument symbol (required)")
	strategyAddCmd.Flags().StringVarP(&saType, "type", "t", "", "TRAILING_STOP, BRACKET, SCALE_OUT, GRID, or PULLBACK_TRAILING (required)")
	strategyAddCmd.Flags().StringVarP(&saQty, "qty", "q", "", "position quantity (required)")
	strategyAddCmd.Flags().StringVar(&saEntry, "entry", "market", "entry style: market, limit, or condition")
	strategyAddCmd.Flags().StringVar(&saEntryPrice, "entry-price", "", "limit entry price")
	strategyAddCmd.Flags().StringVar(&saCondition, "condition", "", `condition entry, e.g. "below:170.00"`)
	strategyAddCmd.Flags().StringVar(&saTrail, "trail", "", "trailing stop percent")
	strategyAddCmd.Flags().StringVar(&saTakeProfit, "take-profit", "", "bracket take-profit percent above entry")
	strategyAddCmd.Flags().StringVar(&saStopLoss, "stop-loss", "", "bracket stop-loss percent below entry")
	strategyAddCmd.Flags().StringVar(&saPullback, "pullback", "", "pullback percent for PULLBACK_TRAILING")
	strategyAddCmd.Flags().StringVar(&saTranches, "tranches", "", `scale-out tranches as gain:pct pairs, e.g. "5:50,10:50"`)
	strategyAddCmd.Flags().StringVar(&saGridLow, "grid-low", "", "grid band lower bound")
	strategyAddCmd.Flags().StringVar(&saGridHigh, "grid-high", "", "grid band upper bound")
	strategyAddCmd.Flags().IntVar(&saLevels, "levels", 0, "grid level count")
	strategyAddCmd.Flags().StringVar(&saLevelQty, "level-qty", "", "grid quantity per level")

	strategyAddCmd.MarkFlagRequired("symbol")
	strategyAddCmd.MarkFlagRequired("type")
	strategyAddCmd.MarkFlagRequired("qty")
}

func strategyStore() (*strategy.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, err
	}
	return strategy.NewStore(cfg.Resolve(cfg.Paths.Strategies)), nil
}

func runStrategyAdd(cmd *cobra.Command, args []string) error {
	st, err := strategyStore()
	if err != nil {
		return err
	}

	qty, err := decimal.NewFromString(saQty)
	if err != nil {
		return fmt.Errorf("parse --qty: %w", err)
	}

	entry := strategy.EntryConfig{Type: strategy.EntryMarket}
	switch strings.ToLower(saEntry) {
	case "market":
	case "limit":
		price, err := decimal.NewFromString(saEntryPrice)
		if err != nil {
			return fmt.Errorf("limit entry needs --entry-price: %w", err)
		}
		entry = strategy.EntryConfig{Type: strategy.EntryLimit, Price: price}
	case "condition":
		entry = strategy.EntryConfig{Type: strategy.EntryCondition, Condition: saCondition}
	default:
		return fmt.Errorf("unknown entry style %q", saEntry)
	}

	s, err := strategy.New(saSymbol, strategy.Type(strings.ToUpper(saType)), qty, entry)
	if err != nil {
		return err
	}
	if err := applyTypeConfig(s); err != nil {
		return err
	}

	if err := st.Add(s); err != nil {
		return err
	}
	fmt.Printf("created strategy %s (%s %s, qty %s)\n", s.ID, s.Type, s.Symbol, s.Qty)
	return nil
}

func applyTypeConfig(s *strategy.Strategy) error {
	switch s.Type {
	case strategy.TrailingStop:
		trail, err := decimal.NewFromString(saTrail)
		if err != nil {
			return fmt.Errorf("TRAILING_STOP needs --trail: %w", err)
		}
		s.TrailingStop = &strategy.TrailingStopConfig{TrailPercent: trail}
	case strategy.Bracket:
		tp, err := decimal.NewFromString(saTakeProfit)
		if err != nil {
			return fmt.Errorf("BRACKET needs --take-profit: %w", err)
		}
		sl, err := decimal.NewFromString(saStopLoss)
		if err != nil {
			return fmt.Errorf("BRACKET needs --stop-loss: %w", err)
		}
		s.Bracket = &strategy.BracketConfig{TakeProfitPct: tp, StopLossPct: sl}
	case strategy.PullbackTrailing:
		pb, err := decimal.NewFromString(saPullback)
		if err != nil {
			return fmt.Errorf("PULLBACK_TRAILING needs --pullback: %w", err)
		}
		trail, err := decimal.NewFromString(saTrail)
		if err != nil {
			return fmt.Errorf("PULLBACK_TRAILING needs --trail: %w", err)
		}
		s.PullbackTrailing = &strategy.PullbackTrailingConfig{PullbackPct: pb, TrailPercent: trail}
	case strategy.ScaleOut:
		tranches, err := parseTranches(saTranches)
		if err != nil {
			return err
		}
		s.ScaleOut = &strategy.ScaleOutConfig{Tranches: tranches}
	case strategy.Grid:
		low, err := decimal.NewFromString(saGridLow)
		if err != nil {
			return fmt.Errorf("GRID needs --grid-low: %w", err)
		}
		high, err := decimal.NewFromString(saGridHigh)
		if err != nil {
			return fmt.Errorf("GRID needs --grid-high: %w", err)
		}
		levelQty, err := decimal.NewFromString(saLevelQty)
		if err != nil {
			return fmt.Errorf("GRID needs --level-qty: %w", err)
		}
		s.Grid = &strategy.GridConfig{Low: low, High: high, Levels: saLevels, QtyPerLevel: levelQty}
	default:
		return fmt.Errorf("unknown strategy type %q", s.Type)
	}
	return s.Validate()
}

// parseTranches reads "gain:pct" pairs, e.g. "5:50,10:50".
func parseTranches(spec string) ([]strategy.Tranche, error) {
	if spec == "" {
		return nil, fmt.Errorf("SCALE_OUT needs --tranches")
	}
	var out []strategy.Tranche
	for _, part := range strings.Split(spec, ",") {
		gain, pct, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("bad tranche %q, want gain:pct", part)
		}
		g, err := decimal.NewFromString(gain)
		if err != nil {
			return nil, fmt.Errorf("bad tranche gain %q: %w", gain, err)
		}
		p, err := decimal.NewFromString(pct)
		if err != nil {
			return nil, fmt.Errorf("bad tranche pct %q: %w", pct, err)
		}
		out = append(out, strategy.Tranche{GainPct: g, Pct: p})
	}
	return out, nil
}

func runStrategyList(cmd *cobra.Command, args []string) error {
	st, err := strategyStore()
	if err != nil {
		return err
	}
	all, err := st.List()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "SYMBOL", "TYPE", "PHASE", "QTY", "ENTRY", "ENABLED", "UPDATED"})
	for _, s := range all {
		t.AppendRow(table.Row{
			s.ID, s.Symbol, s.Type, s.Phase, s.Qty, s.Entry.Type,
			s.Enabled, s.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	return nil
}

func runStrategyRm(cmd *cobra.Command, args []string) error {
	st, err := strategyStore()
	if err != nil {
		return err
	}
	if err := st.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed strategy %s\n", args[0])
	return nil
}

func runStrategyPause(cmd *cobra.Command, args []string) error {
	return mutateStrategy(args[0], func(s *strategy.Strategy) error { return s.Pause() })
}

func runStrategyResume(cmd *cobra.Command, args []string) error {
	return mutateStrategy(args[0], func(s *strategy.Strategy) error { return s.Resume() })
}

func mutateStrategy(id string, fn func(*strategy.Strategy) error) error {
	st, err := strategyStore()
	if err != nil {
		return err
	}
	s, err := st.Get(id)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := st.Update(s); err != nil {
		return err
	}
	fmt.Printf("strategy %s is now %s\n", s.ID, s.Phase)
	return nil
}

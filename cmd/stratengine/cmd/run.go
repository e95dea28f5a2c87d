package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/audit"
	"github.com/rustyeddy/stratengine/broker/sim"
	"github.com/rustyeddy/stratengine/engine"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/monitoring"
	"github.com/rustyeddy/stratengine/orders"
	"github.com/rustyeddy/stratengine/safety"
	"github.com/rustyeddy/stratengine/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live polling engine against a paper account",
	Long: `Run starts the polling engine: every interval it evaluates
active strategies, routes resulting orders through the safety checks,
and persists fills to the trade ledger.

The engine holds an exclusive lock file while running, so only one
instance operates per data directory. Orders execute against a
simulated paper account driven by a CSV bar feed, one bar per poll.

Example:
  stratengine run --feed data/aapl.csv --symbol AAPL --cash 100000`,
	RunE: runEngine,
}

var (
	runFeedPath string
	runSymbol   string
	runCash     string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFeedPath, "feed", "f", "", "CSV bar feed driving the paper account (required)")
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol the feed quotes (required)")
	runCmd.Flags().StringVar(&runCash, "cash", "100000", "paper account starting cash")

	runCmd.MarkFlagRequired("feed")
	runCmd.MarkFlagRequired("symbol")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return err
	}

	cash, err := decimal.NewFromString(runCash)
	if err != nil {
		return fmt.Errorf("parse --cash: %w", err)
	}

	bars, err := market.LoadBarsCSV(runFeedPath)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("feed %s holds no bars", runFeedPath)
	}

	interval, err := cfg.PollInterval()
	if err != nil {
		return err
	}

	log := newLogger()

	led, err := ledger.NewSQLite(cfg.Resolve(cfg.Paths.LedgerDB))
	if err != nil {
		return err
	}
	defer led.Close()

	trail, err := audit.Open(cfg.Resolve(cfg.Paths.AuditDB))
	if err != nil {
		return err
	}
	defer trail.Close()

	strategies := strategy.NewStore(cfg.Resolve(cfg.Paths.Strategies))
	orderStore := orders.NewStore(cfg.Resolve(cfg.Paths.Orders))

	paper := sim.NewEngine(cash)
	paper.SetBar(runSymbol, bars[0])

	exec := &engine.Executor{
		Broker:     paper,
		Strategies: strategies,
		Orders:     orderStore,
		Ledger:     led,
		Audit:      trail,
		Safety:     safety.NewChecker(cfg.Safety, paper, led, orderStore),
		Log:        log,
	}

	live := &engine.Live{
		Broker:     paper,
		Strategies: strategies,
		Orders:     orderStore,
		Executor:   exec,
		Evaluator:  strategy.NewEvaluator(&engine.BrokerView{Broker: paper, Orders: orderStore}),
		Lock:       engine.NewLock(cfg.Resolve(cfg.Paths.LockFile)),
		Interval:   interval,
		Log:        log,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Engine.MetricsAddr != "" {
		go serveMetrics(cfg.Engine.MetricsAddr, log)
	}

	// The feed advances one bar per poll; the engine sees it as a
	// slowly moving market. When the feed runs out the session ends.
	feedCtx, feedDone := context.WithCancel(ctx)
	go func() {
		defer feedDone()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for _, b := range bars[1:] {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				paper.SetBar(runSymbol, b)
			}
		}
	}()

	return live.Run(feedCtx)
}

func serveMetrics(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "err", err)
	}
}

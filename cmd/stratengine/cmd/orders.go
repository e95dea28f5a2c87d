package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/broker/sim"
	"github.com/rustyeddy/stratengine/orders"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect and reconcile the local order store",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally recorded orders",
	RunE:  runOrdersList,
}

var ordersReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Overwrite local order state with the broker's view",
	Long: `Reconcile fetches each non-terminal local order from the broker
and overwrites any divergent local status. The broker is
authoritative; orders the broker no longer knows are logged and left
untouched.`,
	RunE: runOrdersReconcile,
}

var ordersOpenOnly bool

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersReconcileCmd)

	ordersListCmd.Flags().BoolVar(&ordersOpenOnly, "open", false, "only NEW and SUBMITTED orders")
}

func orderStore() (*orders.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return orders.NewStore(cfg.Resolve(cfg.Paths.Orders)), nil
}

func runOrdersList(cmd *cobra.Command, args []string) error {
	st, err := orderStore()
	if err != nil {
		return err
	}

	list, err := st.List()
	if ordersOpenOnly {
		list, err = st.Open()
	}
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "BROKER ID", "SYMBOL", "SIDE", "QTY", "TYPE", "STATUS", "FILL", "STRATEGY"})
	for _, o := range list {
		fill := ""
		if o.FillPrice.Sign() > 0 {
			fill = o.FillPrice.StringFixed(2)
		}
		t.AppendRow(table.Row{
			o.ID, o.ExternalID, o.Symbol, o.Side, o.Qty, o.Type, o.Status, fill, o.StrategyID,
		})
	}
	t.Render()
	return nil
}

func runOrdersReconcile(cmd *cobra.Command, args []string) error {
	st, err := orderStore()
	if err != nil {
		return err
	}

	log := newLogger()

	// The paper account is per-process, so a fresh one has no orders
	// to reconcile against; this command exists for sessions whose
	// broker outlives the CLI. It still exercises the full pass.
	paper := sim.NewEngine(decimal.Zero)
	if err := orders.Reconcile(cmd.Context(), st, paper, log); err != nil {
		return err
	}
	fmt.Println("reconcile pass complete")
	return nil
}

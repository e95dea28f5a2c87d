package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the execution audit trail",
	Long: `Audit lists every recorded execution event: orders placed,
safety denials, strategy failures, and engine stops, oldest first.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	trail, err := audit.Open(cfg.Resolve(cfg.Paths.AuditDB))
	if err != nil {
		return err
	}
	defer trail.Close()

	entries, err := trail.List()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"TIME", "ACTION", "DETAIL"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Detail})
	}
	t.Render()
	return nil
}

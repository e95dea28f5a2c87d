package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/engine"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running engine",
	Long: `Stop signals the engine holding this data directory's lock.
The engine finishes its current poll cycle, releases the lock, and
exits; SIGTERM is the same cooperative stop as Ctrl-C.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pid, alive := engine.Holder(cfg.Resolve(cfg.Paths.LockFile))
	if pid == 0 {
		return fmt.Errorf("no engine is running (no lock file)")
	}
	if !alive {
		return fmt.Errorf("lock file names pid %d but it is not running (stale lock)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal engine pid %d: %w", pid, err)
	}
	fmt.Printf("sent stop to engine pid %d\n", pid)
	return nil
}

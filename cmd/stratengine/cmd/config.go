package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  stratengine config init --output stratengine.yaml`,
	RunE: runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration file and the environment",
	Long: `Check loads the configuration, validates it, and reports whether
broker credentials are present in the environment (or .env).`,
	RunE: runConfigCheck,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "stratengine.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default(dataDir)
	if err := cfg.Save(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("created default configuration: %s\n", configInitOutput)
	return nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println("configuration is valid")

	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		fmt.Println("broker credentials: not set (paper trading only)")
	} else {
		fmt.Println("broker credentials: present")
	}
	return nil
}

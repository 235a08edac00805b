package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // dashboard.timezone в минимальных контейнерах

	"github.com/spf13/cobra"

	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kpidash",
	Short: "KPI dashboard service over a Google Sheets Apps Script endpoint",
	Long: `kpidash loads indicator data from a spreadsheet-backed Apps Script endpoint,
falls back to a built-in sample dataset when the endpoint is missing or failing,
and accepts new indicator records in paced batches.

Configuration comes from config.yaml (./ or ./configs) and environment variables
(REMOTE_URL, SUBMIT_PACING, ...).`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Load the dashboard once and print the formatted view as JSON",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logger.level")

	snapshotCmd.Flags().Bool("raw", false, "print the raw application state instead of the formatted view")

	rootCmd.AddCommand(serveCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig читает конфиг и применяет глобальные флаги
func loadConfig() (*infra.Config, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	return cfg, nil
}

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"outpass-backend/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "outpassd",
	Short: "Outpass approval and gate ledger service",
	Long: `outpassd serves the outpass API: students submit requests, mentors,
HODs and wardens approve them in order, and security records each exit
and return at the gate.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default is $CONFIG_PATH or ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config path from the flag, then CONFIG_PATH, then
// the local default.
func loadConfig(logger *log.Logger) *config.Config {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", path, err)
	}
	logger.Printf("configuration loaded successfully from %s", path)
	return cfg
}

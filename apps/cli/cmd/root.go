package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arkadyv/reqforge/packages/core/config"
	"github.com/arkadyv/reqforge/packages/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqforge",
	Short: "Describe, execute, save and chain HTTP API requests",
	Long: `reqforge is a command-line HTTP client. Describe a request once,
execute it, save it under a name, replay it later, and feed fields
captured from one response into the next request.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var dataDirFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override the data directory (default ~/.reqforge)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore builds the store and config pair the subcommands share.
func openStore() (*store.Store, *config.Config, error) {
	st, err := store.Open(dataDirFlag)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(st.Dir())
	if err != nil {
		return nil, nil, err
	}
	// An explicit --data-dir wins over the configured data_dir. The config
	// file itself stays in the default location.
	if dataDirFlag == "" && cfg.DataDir != "" && cfg.DataDir != st.Dir() {
		st, err = store.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
	}
	if cfg.HistoryLimit > 0 {
		st, err = store.Open(st.Dir(), store.WithHistoryLimit(cfg.HistoryLimit))
		if err != nil {
			return nil, nil, err
		}
	}
	return st, cfg, nil
}

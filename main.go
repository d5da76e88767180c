package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jalad-shrimali/gpi-merge/config"
)

var (
	// Global flags
	configPath    string
	verbose       bool
	xlsx          bool
	sqlitePath    string
	duplicateKeys string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gpimerge",
	Short: "Merge and split ASCAT grid point datasets",
	Long: `gpimerge prepares soil and prediction CSV datasets keyed on gpi_ascat.

  merge-aggregate  join stations with predictions and score percentage_match
  merge            join stations with predictions
  split            normalise the time column and split by grid point
  serve            run the same jobs behind an HTTP upload server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("xlsx") {
			cfg.Export.XLSX = xlsx
		}
		if flags.Changed("sqlite") {
			cfg.Export.SQLite = sqlitePath
		}
		if flags.Changed("duplicate-keys") {
			cfg.Join.DuplicateKeys = duplicateKeys
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development || verbose {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		lvl, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&xlsx, "xlsx", false, "also write an .xlsx copy of every output")
	pf.StringVar(&sqlitePath, "sqlite", "", "also write every output into this SQLite database")
	pf.StringVar(&duplicateKeys, "duplicate-keys", "allow", "repeated gpi_ascat in a join: allow (cross product) or fail")

	rootCmd.AddCommand(mergeAggregateCmd, mergeCmd, splitCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

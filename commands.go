package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/config"
	"github.com/jalad-shrimali/gpi-merge/handlers"
	"github.com/jalad-shrimali/gpi-merge/mergeagg"
	"github.com/jalad-shrimali/gpi-merge/mergesimple"
	"github.com/jalad-shrimali/gpi-merge/splitter"
)

var (
	stationsFlag    string
	predictionsFlag string
	outputFlag      string
	inputFlag       string
	prefixFlag      string
	partsFlag       int
	addrFlag        string
)

var mergeAggregateCmd = &cobra.Command{
	Use:   "merge-aggregate",
	Short: "Join stations with predictions and average percentage_match per grid point",
	Args:  cobra.NoArgs,
	RunE:  runMergeAggregate,
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Join stations with predictions on gpi_ascat",
	Args:  cobra.NoArgs,
	RunE:  runMerge,
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Normalise time and split rows into part files by grid point",
	Args:  cobra.NoArgs,
	RunE:  runSplit,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the merge and split jobs over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	for _, c := range []*cobra.Command{mergeAggregateCmd, mergeCmd} {
		c.Flags().StringVar(&stationsFlag, "stations", "", "station attributes CSV")
		c.Flags().StringVar(&predictionsFlag, "predictions", "", "predictions CSV")
		c.Flags().StringVarP(&outputFlag, "output", "o", "", "output CSV")
	}
	splitCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "input CSV")
	splitCmd.Flags().StringVar(&prefixFlag, "prefix", "", "output prefix, parts are written to <prefix>_part<i>.csv")
	splitCmd.Flags().IntVarP(&partsFlag, "parts", "n", 0, "number of part files")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address")
}

// applyFlags copies the subcommand flags the user set over the loaded
// configuration.
func applyFlags(cmd *cobra.Command) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}

	var mc *config.MergeConfig
	switch cmd {
	case mergeAggregateCmd:
		mc = &cfg.MergeAggregate
	case mergeCmd:
		mc = &cfg.MergeSimple
	}
	if mc != nil {
		set("stations", &mc.Stations, stationsFlag)
		set("predictions", &mc.Predictions, predictionsFlag)
		set("output", &mc.Output, outputFlag)
	}

	if cmd == splitCmd {
		set("input", &cfg.Split.Input, inputFlag)
		set("prefix", &cfg.Split.OutputPrefix, prefixFlag)
		if cmd.Flags().Changed("parts") {
			cfg.Split.Parts = partsFlag
		}
	}
	if cmd == serveCmd {
		set("addr", &cfg.Server.Addr, addrFlag)
	}
}

func runMergeAggregate(cmd *cobra.Command, args []string) error {
	mc := cfg.MergeAggregate
	opts := mergeagg.Options{
		Stations:    mc.Stations,
		Predictions: mc.Predictions,
		Output:      mc.Output,
		Duplicates:  cfg.Duplicates(),
		Export:      cfg.Exports(),
		Logger:      logger,
	}
	if _, err := mergeagg.Run(opts); err != nil {
		return fmt.Errorf("merge-aggregate: %w", err)
	}
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	mc := cfg.MergeSimple
	opts := mergesimple.Options{
		Stations:    mc.Stations,
		Predictions: mc.Predictions,
		Output:      mc.Output,
		Duplicates:  cfg.Duplicates(),
		Export:      cfg.Exports(),
		Logger:      logger,
	}
	if _, err := mergesimple.Run(opts); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), mergesimple.Confirmation(opts.Output))
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	opts := splitter.Options{
		Input:  cfg.Split.Input,
		Prefix: cfg.Split.OutputPrefix,
		Parts:  cfg.Split.Parts,
		Export: cfg.Exports(),
		Logger: logger,
	}
	if _, err := splitter.Run(opts); err != nil {
		return fmt.Errorf("split: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	srv := handlers.New(cfg, logger)

	logger.Info("server started", zap.String("addr", cfg.Server.Addr))
	return http.ListenAndServe(cfg.Server.Addr, srv.Routes())
}

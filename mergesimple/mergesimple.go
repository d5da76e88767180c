// Package mergesimple attaches station attributes to a prediction file
// without any aggregation.
package mergesimple

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/table"
)

// Options names the two inputs, the output path and how the join treats
// repeated keys.
type Options struct {
	Stations    string
	Predictions string
	Output      string
	Duplicates  table.DuplicateKeys
	Export      table.ExportOptions
	Logger      *zap.Logger
}

// Confirmation is the line reported to the user after a successful run.
func Confirmation(output string) string {
	return fmt.Sprintf("Merged data saved to %s", output)
}

// Run reads both inputs, merges them and writes opts.Output, replacing any
// previous file.
func Run(opts Options) (*table.Table, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	stations, err := table.ReadCSV(opts.Stations)
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}
	predictions, err := table.ReadCSV(opts.Predictions)
	if err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}

	out, err := Merge(stations, predictions, opts.Duplicates)
	if err != nil {
		return nil, err
	}
	files, err := table.Save(out, opts.Output, opts.Export)
	if err != nil {
		return nil, err
	}
	log.Info("merge written",
		zap.Int("station_rows", stations.Len()),
		zap.Int("prediction_rows", predictions.Len()),
		zap.Int("rows", out.Len()),
		zap.Strings("files", files))
	return out, nil
}

// Merge inner-joins stations and predictions on gpi_ascat. A soil_cat column
// in predictions is discarded so the station value is the only one kept.
func Merge(stations, predictions *table.Table, dup table.DuplicateKeys) (*table.Table, error) {
	return table.InnerJoin(stations, predictions.Drop("soil_cat"), table.JoinOptions{On: table.GPIKey, Duplicates: dup})
}

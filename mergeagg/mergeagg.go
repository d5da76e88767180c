// Package mergeagg joins station attributes with per-observation predictions
// and reduces them to one row per grid point carrying the share of
// observations where the prediction hit the target.
package mergeagg

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/table"
)

const (
	MatchColumn = "percentage_match"
	unnamedIdx  = "Unnamed: 0"
)

// stationExtras are fit parameters carried in the station file that are not
// part of the merged output.
var stationExtras = []string{"params", "theta_turn", "sigma_dry"}

// carried are taken from the first row of each grid point.
var carried = []string{"lon", "lat", "soil_cat"}

// ErrNoMatchColumns means the joined table lacks target or prediction, so
// there is nothing to aggregate.
var ErrNoMatchColumns = errors.New("target and prediction columns are required to compute " + MatchColumn)

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

// Run reads both inputs, aggregates them and writes the result to
// opts.Output, replacing any previous file.
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
	log.Info("inputs loaded",
		zap.String("stations", opts.Stations), zap.Int("station_rows", stations.Len()),
		zap.String("predictions", opts.Predictions), zap.Int("prediction_rows", predictions.Len()))

	out, err := Aggregate(stations, predictions, opts.Duplicates, log)
	if err != nil {
		return nil, err
	}

	files, err := table.Save(out, opts.Output, opts.Export)
	if err != nil {
		return nil, err
	}
	log.Info("aggregate written", zap.Strings("files", files), zap.Int("rows", out.Len()))
	return out, nil
}

// Aggregate is the in-memory part of Run.
func Aggregate(stations, predictions *table.Table, dup table.DuplicateKeys, log *zap.Logger) (*table.Table, error) {
	if log == nil {
		log = zap.NewNop()
	}

	stations = stations.Drop(stationExtras...)
	if predictions.Has("soil_cat") {
		// soil category comes from the station file only
		predictions = predictions.Drop("soil_cat")
		log.Debug("dropped soil_cat from predictions")
	}

	joined, err := table.InnerJoin(stations, predictions, table.JoinOptions{On: table.GPIKey, Duplicates: dup})
	if err != nil {
		return nil, err
	}
	log.Info("joined", zap.Int("rows", joined.Len()))

	s, err := table.Probe(joined, append([]string{table.GPIKey}, carried...)...)
	if err != nil {
		return nil, err
	}
	if !s.Has("target") || !s.Has("prediction") {
		return nil, ErrNoMatchColumns
	}

	type group struct {
		key   string
		rows  int
		sum   float64
		first []string
	}
	groups := map[string]*group{}
	var keys []string

	ki, ti, pi := s.Index(table.GPIKey), s.Index("target"), s.Index("prediction")
	for _, row := range joined.Rows {
		k := table.Key(row[ki])
		g, ok := groups[k]
		if !ok {
			g = &group{key: row[ki], first: make([]string, len(carried))}
			for i, c := range carried {
				g.first[i] = row[s.Index(c)]
			}
			groups[k] = g
			keys = append(keys, k)
		}
		g.rows++
		if table.Equal(row[ti], row[pi]) {
			g.sum += 100
		}
	}
	table.SortKeys(keys)

	out := table.New(append([]string{table.GPIKey, MatchColumn}, carried...))
	for _, k := range keys {
		g := groups[k]
		row := append([]string{g.key, table.FormatFloat(g.sum / float64(g.rows))}, g.first...)
		out.Rows = append(out.Rows, row)
	}

	if out.Rename(unnamedIdx, "time") {
		log.Debug("renamed unnamed index column", zap.String("to", "time"))
	}
	return out, nil
}

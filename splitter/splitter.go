// Package splitter normalises the time column of a station file and spreads
// its grid points over a number of part files.
package splitter

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/table"
)

const TimeColumn = "time"

var ErrParts = errors.New("parts must be at least 1")

type Options struct {
	Input string
	// Prefix is the output path without extension; part i is written to
	// <Prefix>_part<i>.csv.
	Prefix string
	Parts  int
	Export table.ExportOptions
	Logger *zap.Logger
}

// NormalizeTime turns "<date> <clock>.<fraction>" into "<clock>". Values
// without a space are returned unchanged.
func NormalizeTime(v string) string {
	if !strings.Contains(v, " ") {
		return v
	}
	clock := strings.Split(v, " ")[1]
	if i := strings.IndexByte(clock, '.'); i != -1 {
		clock = clock[:i]
	}
	return clock
}

// Partition cuts keys into n contiguous groups of len(keys)/n keys; the first
// len(keys)%n groups get one extra. Groups may be empty when n > len(keys).
func Partition(keys []string, n int) [][]string {
	per, rem := len(keys)/n, len(keys)%n
	out := make([][]string, n)
	start := 0
	for i := range out {
		end := start + per
		if i < rem {
			end++
		}
		out[i] = keys[start:end]
		start = end
	}
	return out
}

// PartPath is the file name of the 1-based part i.
func PartPath(prefix string, i int) string {
	return fmt.Sprintf("%s_part%d.csv", prefix, i)
}

// Split normalises the time column and returns n tables whose rows, in input
// order, belong to each key group.
func Split(t *table.Table, n int) ([]*table.Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrParts, n)
	}
	s, err := table.Probe(t, TimeColumn, table.GPIKey)
	if err != nil {
		return nil, err
	}
	ti, ki := s.Index(TimeColumn), s.Index(table.GPIKey)

	rows := make([][]string, len(t.Rows))
	seen := map[string]bool{}
	var keys []string
	for r, row := range t.Rows {
		nr := append([]string(nil), row...)
		nr[ti] = NormalizeTime(nr[ti])
		rows[r] = nr

		k := table.Key(nr[ki])
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	parts := make([]*table.Table, n)
	for i, group := range Partition(keys, n) {
		member := make(map[string]bool, len(group))
		for _, k := range group {
			member[k] = true
		}
		p := table.New(t.Header)
		for _, row := range rows {
			if member[table.Key(row[ki])] {
				p.Rows = append(p.Rows, row)
			}
		}
		parts[i] = p
	}
	return parts, nil
}

// Run splits opts.Input and writes every part, including empty ones. It
// returns the CSV paths in part order.
func Run(opts Options) ([]string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	in, err := table.ReadCSV(opts.Input)
	if err != nil {
		return nil, err
	}
	parts, err := Split(in, opts.Parts)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = PartPath(opts.Prefix, i+1)
		if _, err := table.Save(p, paths[i], opts.Export); err != nil {
			return nil, err
		}
		log.Info("part written", zap.String("path", paths[i]), zap.Int("rows", p.Len()))
	}
	return paths, nil
}

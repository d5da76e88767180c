package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/table"
)

// Point is every row of one grid point, in file order.
type Point struct {
	GPI  string              `json:"gpi_ascat"`
	Rows []map[string]string `json:"rows"`
}

// DatasetResponse is the body of GET /datasets/.
type DatasetResponse struct {
	Dataset string   `json:"dataset"`
	Columns []string `json:"columns"`
	Points  []Point  `json:"points"`
}

// GroupPoints groups the rows of t by gpi_ascat in first-seen order. When
// only is non-empty just that grid point is returned.
func GroupPoints(t *table.Table, only string) ([]Point, error) {
	s, err := table.Probe(t, table.GPIKey)
	if err != nil {
		return nil, err
	}
	ki := s.Index(table.GPIKey)
	want := table.Key(only)

	var points []Point
	at := map[string]int{}
	for _, row := range t.Rows {
		k := table.Key(row[ki])
		if only != "" && k != want {
			continue
		}
		i, ok := at[k]
		if !ok {
			i = len(points)
			at[k] = i
			points = append(points, Point{GPI: row[ki]})
		}
		rec := make(map[string]string, len(t.Header))
		for c, h := range t.Header {
			rec[h] = row[c]
		}
		points[i].Rows = append(points[i].Rows, rec)
	}
	return points, nil
}

// Dataset serves a CSV from the output directory as JSON grouped per grid
// point, e.g. GET /datasets/<job>/ascat_diff_diff.csv?gpi=1.
func (s *Server) Dataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	if !filepath.IsLocal(name) || !strings.EqualFold(filepath.Ext(name), ".csv") {
		http.Error(w, "dataset must be a .csv path inside the output directory", http.StatusBadRequest)
		return
	}

	t, err := table.ReadCSV(filepath.Join(s.cfg.Server.OutputDir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, "dataset", err)
		return
	}
	points, err := GroupPoints(t, r.URL.Query().Get("gpi"))
	if err != nil {
		s.fail(w, "dataset", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := DatasetResponse{Dataset: name, Columns: t.Header, Points: points}
	if resp.Points == nil {
		resp.Points = []Point{}
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("dataset encode failed", zap.String("dataset", name), zap.Error(err))
	}
}

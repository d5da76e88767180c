// Package handlers exposes the merge and split jobs over HTTP: inputs are
// multipart uploads, outputs are served back from the output directory.
// Every request runs as its own job with private upload and output
// directories named after the job id.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jalad-shrimali/gpi-merge/config"
	"github.com/jalad-shrimali/gpi-merge/mergeagg"
	"github.com/jalad-shrimali/gpi-merge/mergesimple"
	"github.com/jalad-shrimali/gpi-merge/splitter"
	"github.com/jalad-shrimali/gpi-merge/table"
)

// Server runs jobs against one configuration.
type Server struct {
	cfg config.Config
	log *zap.Logger

	// sqliteMu serialises jobs while a shared SQLite export is configured.
	sqliteMu sync.Mutex
}

func New(cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, log: log}
}

// Routes returns the mux with every job endpoint, /download/ and /datasets/.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/merge-aggregate", s.MergeAggregate)
	mux.HandleFunc("/merge", s.MergeSimple)
	mux.HandleFunc("/split", s.Split)
	mux.HandleFunc("GET /datasets/{path...}", s.Dataset)
	mux.Handle("/download/",
		http.StripPrefix("/download/", http.FileServer(http.Dir(s.cfg.Server.OutputDir))))
	return mux
}

// job is one request's working area.
type job struct {
	id     string
	upload string
	output string
	// inputs and names are the saved upload paths and the client file names.
	inputs []string
	names  []string
}

func (j *job) download(path string) string {
	return "/download/" + j.id + "/" + filepath.Base(path)
}

func (s *Server) MergeAggregate(w http.ResponseWriter, r *http.Request) {
	j, ok := s.receive(w, r, "stations", "predictions")
	if !ok {
		return
	}
	out := filepath.Join(j.output, filepath.Base(s.cfg.MergeAggregate.Output))
	err := s.run(func() error {
		_, err := mergeagg.Run(mergeagg.Options{
			Stations:    j.inputs[0],
			Predictions: j.inputs[1],
			Output:      out,
			Duplicates:  s.cfg.Duplicates(),
			Export:      s.cfg.Exports(),
			Logger:      s.log.With(zap.String("job", j.id)),
		})
		return err
	})
	if err != nil {
		s.fail(w, "merge-aggregate", err)
		return
	}
	fmt.Fprintln(w, j.download(out))
}

func (s *Server) MergeSimple(w http.ResponseWriter, r *http.Request) {
	j, ok := s.receive(w, r, "stations", "predictions")
	if !ok {
		return
	}
	out := filepath.Join(j.output, filepath.Base(s.cfg.MergeSimple.Output))
	err := s.run(func() error {
		_, err := mergesimple.Run(mergesimple.Options{
			Stations:    j.inputs[0],
			Predictions: j.inputs[1],
			Output:      out,
			Duplicates:  s.cfg.Duplicates(),
			Export:      s.cfg.Exports(),
			Logger:      s.log.With(zap.String("job", j.id)),
		})
		return err
	})
	if err != nil {
		s.fail(w, "merge", err)
		return
	}
	fmt.Fprintln(w, j.download(out))
}

func (s *Server) Split(w http.ResponseWriter, r *http.Request) {
	parts := s.cfg.Split.Parts
	if v := strings.TrimSpace(r.FormValue("parts")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "parts must be a positive integer", http.StatusBadRequest)
			return
		}
		parts = n
	}
	j, ok := s.receive(w, r, "file")
	if !ok {
		return
	}

	var written []string
	err := s.run(func() error {
		var err error
		written, err = splitter.Run(splitter.Options{
			Input:  j.inputs[0],
			Prefix: filepath.Join(j.output, table.Stem(j.names[0])),
			Parts:  parts,
			Export: s.cfg.Exports(),
			Logger: s.log.With(zap.String("job", j.id)),
		})
		return err
	})
	if err != nil {
		s.fail(w, "split", err)
		return
	}
	for _, p := range written {
		fmt.Fprintln(w, j.download(p))
	}
}

// run executes fn, one job at a time when every job writes into the same
// SQLite database.
func (s *Server) run(fn func() error) error {
	if s.cfg.Export.SQLite != "" {
		s.sqliteMu.Lock()
		defer s.sqliteMu.Unlock()
	}
	return fn()
}

// receive checks the method, creates the job directories and saves each
// named multipart file into the job's upload directory.
func (s *Server) receive(w http.ResponseWriter, r *http.Request, fields ...string) (*job, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	id := uuid.NewString()
	j := &job{
		id:     id,
		upload: filepath.Join(s.cfg.Server.UploadDir, id),
		output: filepath.Join(s.cfg.Server.OutputDir, id),
	}
	for _, d := range []string{j.upload, j.output} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return nil, false
		}
	}

	for _, field := range fields {
		file, hdr, err := r.FormFile(field)
		if err != nil {
			http.Error(w, fmt.Sprintf("%s: %v", field, err), http.StatusBadRequest)
			return nil, false
		}
		name := filepath.Base(hdr.Filename)
		dst := filepath.Join(j.upload, field+"_"+name)
		err = saveUploaded(file, dst)
		file.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return nil, false
		}
		j.inputs = append(j.inputs, dst)
		j.names = append(j.names, name)
	}
	s.log.Debug("job received", zap.String("job", id), zap.Strings("inputs", j.inputs))
	return j, true
}

func (s *Server) fail(w http.ResponseWriter, job string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, table.ErrMissingColumn),
		errors.Is(err, table.ErrDuplicateKey),
		errors.Is(err, table.ErrEmptyInput),
		errors.Is(err, mergeagg.ErrNoMatchColumns),
		errors.Is(err, splitter.ErrParts):
		status = http.StatusUnprocessableEntity
	}
	s.log.Warn("job failed", zap.String("job", job), zap.Int("status", status), zap.Error(err))
	http.Error(w, job+" failed: "+err.Error(), status)
}

func saveUploaded(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, src)
	return err
}

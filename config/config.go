// Package config resolves the paths and switches used by every command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jalad-shrimali/gpi-merge/table"
)

// Config holds all gpimerge configuration.
type Config struct {
	MergeAggregate MergeConfig  `yaml:"merge_aggregate"`
	MergeSimple    MergeConfig  `yaml:"merge_simple"`
	Split          SplitConfig  `yaml:"split"`
	Join           JoinConfig   `yaml:"join"`
	Export         ExportConfig `yaml:"export"`
	Server         ServerConfig `yaml:"server"`
	Log            LogConfig    `yaml:"log"`
}

type MergeConfig struct {
	Stations    string `yaml:"stations"`
	Predictions string `yaml:"predictions"`
	Output      string `yaml:"output"`
}

type SplitConfig struct {
	Input        string `yaml:"input"`
	OutputPrefix string `yaml:"output_prefix"`
	Parts        int    `yaml:"parts"`
}

type JoinConfig struct {
	// DuplicateKeys is "allow" (cross product) or "fail".
	DuplicateKeys string `yaml:"duplicate_keys"`
}

type ExportConfig struct {
	XLSX   bool   `yaml:"xlsx"`
	SQLite string `yaml:"sqlite"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
	OutputDir string `yaml:"output_dir"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the file names the datasets are published under.
func DefaultConfig() Config {
	return Config{
		MergeAggregate: MergeConfig{
			Stations:    "ascat_soil_categories.csv",
			Predictions: "filtered_merged_diff_diff_files.csv",
			Output:      "ascat_diff_diff.csv",
		},
		MergeSimple: MergeConfig{
			Stations:    "ascat_soil_categories.csv",
			Predictions: "cell1248_predictions_baseline.csv",
			Output:      "ascat_merged_baseline.csv",
		},
		Split: SplitConfig{
			Input:        "ascat_merged_roll15.csv",
			OutputPrefix: "ascat_merged_roll15",
			Parts:        1,
		},
		Join:   JoinConfig{DuplicateKeys: "allow"},
		Server: ServerConfig{Addr: ":8080", UploadDir: "uploads", OutputDir: "filtered"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load starts from DefaultConfig, overlays the YAML file at path (skipped
// when path is empty), then .env and GPIMERGE_* environment variables. The
// result is not validated; callers overlay their own settings first and then
// call Validate.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load(".env")
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("GPIMERGE_DUPLICATE_KEYS", &c.Join.DuplicateKeys)
	str("GPIMERGE_EXPORT_SQLITE", &c.Export.SQLite)
	str("GPIMERGE_SERVER_ADDR", &c.Server.Addr)
	str("GPIMERGE_UPLOAD_DIR", &c.Server.UploadDir)
	str("GPIMERGE_OUTPUT_DIR", &c.Server.OutputDir)
	str("GPIMERGE_LOG_LEVEL", &c.Log.Level)

	if v := strings.TrimSpace(os.Getenv("GPIMERGE_SPLIT_PARTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GPIMERGE_SPLIT_PARTS: %w", err)
		}
		c.Split.Parts = n
	}
	if v := strings.TrimSpace(os.Getenv("GPIMERGE_EXPORT_XLSX")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GPIMERGE_EXPORT_XLSX: %w", err)
		}
		c.Export.XLSX = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Split.Parts < 1 {
		return fmt.Errorf("split.parts must be at least 1, got %d", c.Split.Parts)
	}
	if _, err := table.ParseDuplicateKeys(c.Join.DuplicateKeys); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"merge_aggregate.stations":    c.MergeAggregate.Stations,
		"merge_aggregate.predictions": c.MergeAggregate.Predictions,
		"merge_aggregate.output":      c.MergeAggregate.Output,
		"merge_simple.stations":       c.MergeSimple.Stations,
		"merge_simple.predictions":    c.MergeSimple.Predictions,
		"merge_simple.output":         c.MergeSimple.Output,
		"split.input":                 c.Split.Input,
		"split.output_prefix":         c.Split.OutputPrefix,
	} {
		if strings.TrimSpace(v) == "" {
			return errors.New(name + " is required")
		}
	}
	return nil
}

// Duplicates is the parsed join.duplicate_keys mode.
func (c Config) Duplicates() table.DuplicateKeys {
	d, _ := table.ParseDuplicateKeys(c.Join.DuplicateKeys)
	return d
}

// Exports is the export section in the form the writers take.
func (c Config) Exports() table.ExportOptions {
	return table.ExportOptions{XLSX: c.Export.XLSX, SQLitePath: c.Export.SQLite}
}

package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Flags holds the process-level settings derived from command-line flags
// with environment-variable fallbacks. Empty or zero pipeline overrides mean
// "keep what the config file or defaults say".
type Flags struct {
	ConfigPath string // JSON pipeline file; empty uses DefaultPipeline
	DataDir    string // root for the default run patterns

	// Pipeline overrides.
	StorageKind string
	DSN         string
	BatchSize   int
	Workers     int

	SkippedFile string // optional CSV report of skipped files

	MetricsBackend string // "none", "pushgateway", "datadog"
	PushgatewayURL string
	DatadogAddr    string

	ValidateOnly bool
	Verbose      bool
}

// LoadFromArgs defines flags on fs, seeds each default from getenv, and
// parses args. Callers supply a private FlagSet, a getenv func (often backed
// by a map in tests) and the argument slice.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Flags, error) {
	f := &Flags{}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&f.ConfigPath, "config", getenv("INGEST_CONFIG"), "Path to a JSON pipeline file; defaults to the built-in sales and inventory runs.")
	fs.StringVar(&f.DataDir, "data_dir", envOrDefaultFn("DATA_DIR", "data"), "Root directory of the default run patterns.")

	fs.StringVar(&f.StorageKind, "storage", getenv("STORAGE_KIND"), "Storage kind override: postgres, sqlite, mssql or mysql.")
	fs.StringVar(&f.DSN, "dsn", getenv("DB_DSN"), "Sink DSN override.")
	fs.IntVar(&f.BatchSize, "batch_size", intEnvOrDefaultFn("BATCH_SIZE", 0), "Record sets per flush override (0 keeps the configured value).")
	fs.IntVar(&f.Workers, "workers", intEnvOrDefaultFn("PARSE_WORKERS", 0), "Parse workers per run override (0 keeps the configured value).")

	fs.StringVar(&f.SkippedFile, "skipped_file", getenv("SKIPPED_FILE"), "Write a CSV report of skipped files to this path.")

	fs.StringVar(&f.MetricsBackend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog.")
	fs.StringVar(&f.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL.")
	fs.StringVar(&f.DatadogAddr, "datadog_addr", envOrDefaultFn("DD_AGENT_ADDR", "127.0.0.1:8125"), "DogStatsD address.")

	fs.BoolVar(&f.ValidateOnly, "validate", boolEnvOrDefaultFn("VALIDATE_ONLY", false), "Validate the pipeline and exit.")
	fs.BoolVar(&f.Verbose, "v", boolEnvOrDefaultFn("VERBOSE", false), "Log one line per file.")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %q", fs.Args())
	}
	return f, nil
}

// LoadFlags is the production entry point: process flag set, os.Getenv and
// os.Args[1:].
func LoadFlags() (*Flags, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// Resolve builds the effective pipeline: the config file named by f (or the
// defaults) with f's overrides applied on top.
func Resolve(f *Flags) (Pipeline, error) {
	var p Pipeline
	if f.ConfigPath != "" {
		var err error
		if p, err = Load(f.ConfigPath); err != nil {
			return Pipeline{}, err
		}
	} else {
		p = DefaultPipeline(f.DataDir)
	}

	if f.StorageKind != "" {
		p.Storage.Kind = f.StorageKind
	}
	if f.DSN != "" {
		p.Storage.DSN = f.DSN
	}
	if f.BatchSize > 0 {
		p.Runtime.BatchSize = f.BatchSize
	}
	if f.Workers > 0 {
		p.Runtime.ParseWorkers = f.Workers
	}
	return p, nil
}

package config

import (
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	pcsv "bronze/internal/parser/csv"
	"bronze/internal/schema"
)

// -----------------------------------------------------------------------------
// Pipeline decoding tests
// -----------------------------------------------------------------------------

func TestPipeline_Decode(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "bronze_ingest",
	  "storage": { "kind": "sqlite", "dsn": "file:bronze.db" },
	  "parser": {
	    "kind": "csv",
	    "options": { "comma": ";", "trim_space": false, "encoding": "windows-1252" }
	  },
	  "runs": [
	    { "name": "sales", "pattern": "data/raw_sales/*.csv", "table": "raw_sales",
	      "rename_preset": "sales", "rename": { "Qty": "quantity" } },
	    { "name": "inventory", "files_from": "lists/inventory.txt", "table": "raw_inventory" }
	  ],
	  "runtime": { "batch_size": 100, "parse_workers": 4, "concurrent_runs": true, "copy_rows": 2000 },
	  "reset": false
	}`

	var p Pipeline
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if p.Job != "bronze_ingest" || p.Storage.Kind != "sqlite" || p.Storage.DSN != "file:bronze.db" {
		t.Fatalf("header fields: %+v", p)
	}
	if len(p.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(p.Runs))
	}
	if p.Runs[1].FilesFrom != "lists/inventory.txt" || p.Runs[1].Pattern != "" {
		t.Fatalf("files_from not decoded: %+v", p.Runs[1])
	}
	wantRT := RuntimeConfig{BatchSize: 100, ParseWorkers: 4, ConcurrentRuns: true, CopyRows: 2000}
	if diff := cmp.Diff(wantRT, p.Runtime); diff != "" {
		t.Fatalf("runtime mismatch (-want +got):\n%s", diff)
	}
	if p.ResetTables() {
		t.Fatal("reset=false should disable the table reset")
	}

	opt := p.Parser.CSVOptions()
	want := pcsv.Options{Comma: ';', TrimSpace: false, Encoding: "windows-1252"}
	if diff := cmp.Diff(want, opt); diff != "" {
		t.Fatalf("CSVOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_ResetDefaultsToTrue(t *testing.T) {
	t.Parallel()

	var p Pipeline
	if !p.ResetTables() {
		t.Fatal("nil Reset should mean true")
	}
	yes := true
	p.Reset = &yes
	if !p.ResetTables() {
		t.Fatal("Reset=true should mean true")
	}
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	p := DefaultPipeline("/srv/data")
	if p.Storage.Kind != "postgres" || p.Storage.DSN != DefaultDSN {
		t.Fatalf("storage = %+v", p.Storage)
	}
	if p.Runtime.BatchSize != 500 {
		t.Fatalf("batch size = %d, want 500", p.Runtime.BatchSize)
	}
	got := make([][3]string, 0, len(p.Runs))
	for _, r := range p.Runs {
		got = append(got, [3]string{r.Name, r.Pattern, r.Table})
	}
	want := [][3]string{
		{"sales", filepath.Join("/srv/data", "raw_sales", "*.csv"), "raw_sales"},
		{"inventory", filepath.Join("/srv/data", "inventory", "*.csv"), "raw_inventory"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
	if issues := ValidatePipeline(p); len(issues) != 0 {
		t.Fatalf("default pipeline should validate cleanly, got %+v", issues)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	good := write("good.json", `{"job":"j","storage":{"kind":"mysql","dsn":"u:p@tcp(h)/db"},"parser":{"kind":"csv"},"runs":[{"name":"a","pattern":"*.csv","table":"t"}]}`)
	p, err := Load(good)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Storage.Kind != "mysql" || len(p.Runs) != 1 {
		t.Fatalf("Load decoded %+v", p)
	}

	typo := write("typo.json", `{"job":"j","storage":{"kind":"sqlite","dns":"x"}}`)
	if _, err := Load(typo); err == nil || !strings.Contains(err.Error(), "dns") {
		t.Fatalf("Load(unknown field) err = %v, want mention of the field", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) err = %v, want not-exist", err)
	}
}

func TestRun_Renames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		run     Run
		want    schema.RenameTable
		wantErr bool
	}{
		{name: "none", run: Run{Name: "inventory"}, want: nil},
		{name: "preset", run: Run{Name: "sales", RenamePreset: "sales"}, want: schema.SalesRenames()},
		{
			name: "explicit on top of preset",
			run:  Run{Name: "sales", RenamePreset: "sales", Rename: map[string]string{"Qty": "qty_sold", "Till": "register"}},
			want: func() schema.RenameTable {
				rt := schema.SalesRenames()
				rt["Qty"] = "qty_sold"
				rt["Till"] = "register"
				return rt
			}(),
		},
		{name: "explicit only", run: Run{Name: "x", Rename: map[string]string{"a": "b"}}, want: schema.RenameTable{"a": "b"}},
		{name: "unknown preset", run: Run{Name: "x", RenamePreset: "returns"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.run.Renames()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Renames() err = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Renames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_RenamesDoesNotMutatePreset(t *testing.T) {
	t.Parallel()

	r := Run{Name: "sales", RenamePreset: "sales", Rename: map[string]string{"zzz_extra": "extra"}}
	if _, err := r.Renames(); err != nil {
		t.Fatal(err)
	}
	if _, ok := schema.SalesRenames()["zzz_extra"]; ok {
		t.Fatal("explicit renames leaked into the preset table")
	}
}

func TestParser_CSVOptionsDefaults(t *testing.T) {
	t.Parallel()

	got := Parser{Kind: "csv", Options: Options{}}.CSVOptions()
	want := pcsv.Options{Comma: ',', TrimSpace: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CSVOptions defaults mismatch (-want +got):\n%s", diff)
	}
}

// -----------------------------------------------------------------------------
// Options helpers
// -----------------------------------------------------------------------------

func TestOptions_TypedGetters(t *testing.T) {
	t.Parallel()

	o := Options{"s": "x", "b": true, "r": "|", "n": float64(3), "empty": ""}

	if got := o.String("s", "d"); got != "x" {
		t.Fatalf("String(s) = %q", got)
	}
	if got := o.String("n", "d"); got != "d" {
		t.Fatalf("String(non-string) = %q, want default", got)
	}
	if got := o.Bool("b", false); !got {
		t.Fatal("Bool(b) = false")
	}
	if got := o.Bool("s", true); !got {
		t.Fatal("Bool(non-bool) should return default")
	}
	if got := o.Rune("r", ','); got != '|' {
		t.Fatalf("Rune(r) = %q", got)
	}
	if got := o.Rune("empty", ','); got != ',' {
		t.Fatalf("Rune(empty) = %q, want default", got)
	}
	if got := o.Rune("missing", ';'); got != ';' {
		t.Fatalf("Rune(missing) = %q, want default", got)
	}
}

func TestOptions_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		js   string
		want Options
	}{
		{name: "null", js: `{"kind":"csv","options":null}`, want: Options{}},
		{name: "missing", js: `{"kind":"csv"}`, want: nil},
		{name: "object", js: `{"kind":"csv","options":{"comma":";"}}`, want: Options{"comma": ";"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p Parser
			if err := json.Unmarshal([]byte(tt.js), &p); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, p.Options); diff != "" {
				t.Fatalf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Flags
// -----------------------------------------------------------------------------

// TestLoadFromArgs_EnvDefaultsAndFlags checks the precedence model: the
// environment seeds defaults and explicit flags override it.
func TestLoadFromArgs_EnvDefaultsAndFlags(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	env := map[string]string{
		"STORAGE_KIND":    "sqlite",
		"DB_DSN":          "file:env.db",
		"BATCH_SIZE":      "50",
		"PARSE_WORKERS":   "not-a-number",
		"VERBOSE":         "yes",
		"METRICS_BACKEND": "datadog",
	}
	getenv := func(k string) string { return env[k] }

	f, err := LoadFromArgs(fs, getenv, []string{"-dsn=file:flag.db", "-batch_size=7"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if f.StorageKind != "sqlite" {
		t.Fatalf("env storage not applied: %q", f.StorageKind)
	}
	if f.DSN != "file:flag.db" || f.BatchSize != 7 {
		t.Fatalf("flag overrides not applied: %+v", f)
	}
	if f.Workers != 0 {
		t.Fatalf("unparsable env int should keep default, got %d", f.Workers)
	}
	if !f.Verbose || f.MetricsBackend != "datadog" {
		t.Fatalf("env bool/string not applied: %+v", f)
	}
	if f.DataDir != "data" || f.DatadogAddr != "127.0.0.1:8125" {
		t.Fatalf("defaults not applied: %+v", f)
	}
}

func TestLoadFromArgs_NoArgumentsRequired(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f, err := LoadFromArgs(fs, func(string) string { return "" }, nil)
	if err != nil {
		t.Fatalf("LoadFromArgs(nil) err = %v", err)
	}
	if f.ConfigPath != "" || f.MetricsBackend != "none" || f.ValidateOnly {
		t.Fatalf("unexpected defaults: %+v", f)
	}
}

// TestLoadFlags_ProcessDefaults drives the process entry point once: it
// defines flags on flag.CommandLine, so a second call would panic.
func TestLoadFlags_ProcessDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/bronze")
	t.Setenv("METRICS_BACKEND", "")

	f, err := LoadFlags()
	if err != nil {
		t.Fatalf("LoadFlags() err = %v", err)
	}
	if f.DataDir != "/srv/bronze" {
		t.Fatalf("DataDir = %q, want /srv/bronze from the environment", f.DataDir)
	}
	if f.MetricsBackend != "none" {
		t.Fatalf("MetricsBackend = %q, want none", f.MetricsBackend)
	}
}

func TestLoadFromArgs_Errors(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"extra"},
		{"-no_such_flag"},
		{"-batch_size=many"},
	} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(discard{})
		if _, err := LoadFromArgs(fs, func(string) string { return "" }, args); err == nil {
			t.Errorf("LoadFromArgs(%q) err = nil, want error", args)
		}
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "p.json")
	if err := os.WriteFile(cfgPath, []byte(`{"job":"file_job","storage":{"kind":"postgres","dsn":"pg"},"parser":{"kind":"csv"},"runs":[{"name":"a","pattern":"*.csv","table":"t"}],"runtime":{"batch_size":10,"parse_workers":2}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		flags Flags
		check func(t *testing.T, p Pipeline)
	}{
		{
			name:  "defaults",
			flags: Flags{DataDir: "in"},
			check: func(t *testing.T, p Pipeline) {
				if p.Job != "bronze_ingest" || p.Runs[0].Pattern != filepath.Join("in", "raw_sales", "*.csv") {
					t.Fatalf("default pipeline not used: %+v", p)
				}
			},
		},
		{
			name:  "file",
			flags: Flags{ConfigPath: cfgPath},
			check: func(t *testing.T, p Pipeline) {
				if p.Job != "file_job" || p.Runtime.BatchSize != 10 || p.Runtime.ParseWorkers != 2 {
					t.Fatalf("config file not used: %+v", p)
				}
			},
		},
		{
			name:  "overrides",
			flags: Flags{ConfigPath: cfgPath, StorageKind: "sqlite", DSN: "file:x.db", BatchSize: 3, Workers: 8},
			check: func(t *testing.T, p Pipeline) {
				want := Storage{Kind: "sqlite", DSN: "file:x.db"}
				if diff := cmp.Diff(want, p.Storage); diff != "" {
					t.Fatalf("storage mismatch (-want +got):\n%s", diff)
				}
				if p.Runtime.BatchSize != 3 || p.Runtime.ParseWorkers != 8 {
					t.Fatalf("runtime overrides not applied: %+v", p.Runtime)
				}
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Resolve(&tt.flags)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			tt.check(t, p)
		})
	}

	if _, err := Resolve(&Flags{ConfigPath: filepath.Join(dir, "nope.json")}); err == nil {
		t.Fatal("Resolve with a missing file should fail")
	}
}

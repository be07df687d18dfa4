package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	pcsv "bronze/internal/parser/csv"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "runs[1].table"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// tableName accepts plain or schema-qualified SQL identifiers.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty",
		})
	}
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateRuns(p.Runs)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	switch _, ok := known[s.Kind]; {
	case strings.TrimSpace(s.Kind) == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	case !ok:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; want postgres, mysql, mssql or sqlite", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if p.Kind != "csv" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only csv is available", p.Kind),
		})
		return issues
	}

	if comma := p.Options.String("comma", ","); utf8.RuneCountInString(comma) != 1 || comma == "\"" || comma == "\n" || comma == "\r" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  fmt.Sprintf("comma %q must be a single character other than quote or newline", comma),
		})
	}
	if enc := p.Options.String("encoding", ""); enc != "" {
		if err := pcsv.CheckEncoding(enc); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.encoding",
				Message:  err.Error(),
			})
		}
	}
	if p.Options.Bool("lazy_quotes", false) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.options.lazy_quotes",
			Message:  "lazy_quotes keeps rows with stray quotes that would otherwise be skipped as malformed",
		})
	}
	return issues
}

func validateRuns(runs []Run) []Issue {
	var issues []Issue

	if len(runs) == 0 {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "runs",
			Message:  "at least one run is required",
		})
	}

	names := map[string]int{}
	tables := map[string]int{}
	for i, r := range runs {
		at := func(field string) string { return fmt.Sprintf("runs[%d].%s", i, field) }

		switch prev, dup := names[r.Name]; {
		case strings.TrimSpace(r.Name) == "":
			issues = append(issues, Issue{Severity: SeverityError, Path: at("name"), Message: "run name must not be empty"})
		case dup:
			issues = append(issues, Issue{Severity: SeverityError, Path: at("name"), Message: fmt.Sprintf("run name %q already used by runs[%d]", r.Name, prev)})
		default:
			names[r.Name] = i
		}

		switch {
		case r.Pattern == "" && r.FilesFrom == "":
			issues = append(issues, Issue{Severity: SeverityError, Path: at("pattern"), Message: "either pattern or files_from is required"})
		case r.Pattern != "" && r.FilesFrom != "":
			issues = append(issues, Issue{Severity: SeverityWarning, Path: at("pattern"), Message: "files_from is set; pattern is ignored"})
		case r.Pattern != "":
			if _, err := filepath.Match(r.Pattern, ""); err != nil {
				issues = append(issues, Issue{Severity: SeverityError, Path: at("pattern"), Message: fmt.Sprintf("invalid glob %q: %v", r.Pattern, err)})
			}
		}

		if !tableName.MatchString(r.Table) {
			issues = append(issues, Issue{Severity: SeverityError, Path: at("table"), Message: fmt.Sprintf("table %q must be a plain or schema-qualified SQL identifier", r.Table)})
		} else if prev, dup := tables[strings.ToLower(r.Table)]; dup {
			issues = append(issues, Issue{Severity: SeverityWarning, Path: at("table"), Message: fmt.Sprintf("table %q is shared with runs[%d]; both runs append to it", r.Table, prev)})
		} else {
			tables[strings.ToLower(r.Table)] = i
		}

		if _, err := r.Renames(); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: at("rename_preset"), Message: err.Error()})
		}
		for from, to := range r.Rename {
			switch {
			case strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "":
				issues = append(issues, Issue{Severity: SeverityError, Path: at("rename"), Message: fmt.Sprintf("rename %q -> %q has an empty side", from, to)})
			case from == to:
				issues = append(issues, Issue{Severity: SeverityWarning, Path: at("rename"), Message: fmt.Sprintf("rename %q -> %q is a no-op", from, to)})
			}
		}
	}
	return issues
}

func validateRuntime(rt RuntimeConfig) []Issue {
	var issues []Issue
	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.batch_size", rt.BatchSize},
		{"runtime.parse_workers", rt.ParseWorkers},
		{"runtime.copy_rows", rt.CopyRows},
		{"runtime.retry_attempts", rt.RetryAttempts},
		{"runtime.retry_initial_ms", rt.RetryInitialMS},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  fmt.Sprintf("must be >= 0 (0 selects the default), got %d", f.v),
			})
		}
	}
	return issues
}

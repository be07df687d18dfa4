package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// statFn is a test seam for Discover.
var statFn = os.Stat

// Discover resolves a glob pattern (filepath.Match syntax) into the list of
// matching regular files, sorted by path and without duplicates. The order is
// stable for a fixed filesystem state, which keeps batch boundaries and
// progress numbers reproducible between runs.
//
// No match is not an error: Discover returns an empty slice. A malformed
// pattern returns an error wrapping filepath.ErrBadPattern. File contents are
// never opened.
func Discover(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", pattern, err)
	}
	return regularFiles(matches), nil
}

// DiscoverList returns the paths named in a list file (see ReadList), in list
// order. Relative entries are resolved against the list file's directory.
// Entries that do not exist are kept: failing to open them later is a
// per-file problem, not a discovery problem.
func DiscoverList(listPath string) ([]string, error) {
	entries, err := ReadList(listPath)
	if err != nil {
		return nil, fmt.Errorf("discover list %s: %w", listPath, err)
	}
	base := filepath.Dir(listPath)
	out := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		p := e
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func regularFiles(matches []string) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		p := filepath.Clean(m)
		if _, dup := seen[p]; dup {
			continue
		}
		fi, err := statFn(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

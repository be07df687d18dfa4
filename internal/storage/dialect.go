package storage

import (
	"fmt"
	"sync"

	"bronze/internal/ddl"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the DDL dialect for the given storage
// kind. It is typically called from backend packages' init() functions next
// to Register.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind. Callers do not need to
// know which backend they are using; the storage kind from configuration is
// enough.
func DialectFor(kind string) (ddl.Dialect, error) {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return ddl.Dialect{}, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	if err := d.Validate(); err != nil {
		return ddl.Dialect{}, err
	}
	return d, nil
}

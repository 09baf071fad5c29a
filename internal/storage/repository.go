package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config is the minimal configuration needed to open a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// TableRepository replaces whole tables in one backend.
//
// Each backend implements ReplaceTable in its own idiomatic way (pgx COPY,
// DuckDB appender, multi-row INSERT for SQLite and SQL Server).
type TableRepository interface {
	// ReplaceTable drops spec.Name if it exists, creates it from spec and
	// bulk-inserts rows. Every row must have len(spec.Columns) values of type
	// nil, string, int64, float64 or bool. It returns the number of rows written.
	ReplaceTable(ctx context.Context, spec TableSpec, rows [][]any) (int64, error)

	// Close releases backend resources. Call it once.
	Close()
}

// Factory opens a repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (TableRepository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind (e.g. "postgres", "sqlite").
//
// Call it from an init() function in the backend package; storage/all
// blank-imports every backend.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a repository using the registered factory for cfg.Kind.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (TableRepository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

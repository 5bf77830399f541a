package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts raw rows from an external tabular store.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration option of a source.
type ConfigField struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Required bool   `json:"required" yaml:"required"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
	Help     string `json:"help,omitempty" yaml:"help,omitempty"`
}

// SourceSpec describes a source type and its options.
type SourceSpec struct {
	Type         string        `json:"type" yaml:"type"`
	Label        string        `json:"label" yaml:"label"`
	ConfigFields []ConfigField `json:"configFields" yaml:"configFields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover returns the raw, ordered column names of the source.
	Discover(ctx context.Context, cfg SourceConfig) (*Schema, error)

	// Read streams records from the source into a channel.
	// The channel is closed when all records have been read or ctx is cancelled.
	// Errors are sent on the error channel (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, configErrorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// readAll drains a source into a table with the discovered column order.
// Every record must carry exactly the discovered columns: a source that
// changed between Discover and Read (a file rewritten mid-run) would
// otherwise leave cells missing that later stages read as blank.
func readAll(ctx context.Context, src Source, cfg SourceConfig) (*Table, error) {
	schema, err := src.Discover(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	recCh, errCh := src.Read(ctx, cfg)

	t := &Table{Schema: *schema}
	var shapeErr error
	for rec := range recCh {
		// Keep draining after a mismatch so the reader goroutine can finish.
		if shapeErr == nil {
			shapeErr = checkRecordShape(schema, rec, len(t.Records)+1)
		}
		t.Records = append(t.Records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if shapeErr != nil {
		return nil, fmt.Errorf("read: %w", shapeErr)
	}
	return t, nil
}

func checkRecordShape(schema *Schema, rec Record, row int) error {
	for _, f := range schema.Fields {
		if _, ok := rec.Data[f.Name]; !ok {
			return fmt.Errorf("%w: row %d has no column %q", ErrDataQuality, row, f.Name)
		}
	}
	if len(rec.Data) != len(schema.Fields) {
		for k := range rec.Data {
			if schema.Index(k) < 0 {
				return fmt.Errorf("%w: row %d has column %q missing from the header", ErrDataQuality, row, k)
			}
		}
	}
	return nil
}

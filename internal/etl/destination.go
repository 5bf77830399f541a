package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ── Destination ────────────────────────────────────────────
// A Destination renders the final table for whoever consumes it:
// a writer owned by the caller, or an export file rewritten per run.

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// DateLayout is how datetime cells are written.
const DateLayout = "2006-01-02"

// Destination writes a table to a target.
type Destination interface {
	Write(ctx context.Context, t *Table) (int, error)
}

// NewDestination returns the writer for the given format.
func NewDestination(format string, w io.Writer) (Destination, error) {
	switch format {
	case "", FormatCSV:
		return &CSVWriter{W: w}, nil
	case FormatJSON:
		return &JSONWriter{W: w}, nil
	default:
		return nil, configErrorf("unknown output format %q", format)
	}
}

// CSVWriter writes a header row followed by one line per record.
type CSVWriter struct {
	W io.Writer
}

func (c *CSVWriter) Write(ctx context.Context, t *Table) (int, error) {
	w := csv.NewWriter(c.W)
	names := t.Schema.FieldNames()
	if err := w.Write(names); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	row := make([]string, len(names))
	for i, rec := range t.Records {
		select {
		case <-ctx.Done():
			w.Flush()
			return written, ctx.Err()
		default:
		}
		for j, n := range names {
			row[j] = formatCell(rec.Data[n])
		}
		if err := w.Write(row); err != nil {
			return written, fmt.Errorf("write row %d: %w", i+1, err)
		}
		written++
	}
	w.Flush()
	return written, w.Error()
}

// JSONWriter writes an array of objects keyed by column name.
type JSONWriter struct {
	W io.Writer
}

func (j *JSONWriter) Write(ctx context.Context, t *Table) (int, error) {
	rows := make([]map[string]any, 0, len(t.Records))
	for _, rec := range t.Records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		row := make(map[string]any, len(t.Schema.Fields))
		for _, f := range t.Schema.Fields {
			v := rec.Data[f.Name]
			if ts, ok := v.(time.Time); ok {
				v = ts.Format(DateLayout)
			}
			row[f.Name] = v
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(j.W)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return 0, fmt.Errorf("encode json: %w", err)
	}
	return len(rows), nil
}

// FileWriter rewrites a file in the given format on every Write.
type FileWriter struct {
	Path   string
	Format string
}

func (f *FileWriter) Write(ctx context.Context, t *Table) (int, error) {
	file, err := os.Create(f.Path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	dest, err := NewDestination(f.Format, file)
	if err != nil {
		file.Close()
		return 0, err
	}
	n, err := dest.Write(ctx, t)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return n, err
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return cellText(x)
	}
}

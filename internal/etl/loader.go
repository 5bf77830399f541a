package etl

import "context"

// Load reads a source into a table with normalized column names and
// temporal columns converted to time.Time.
func Load(ctx context.Context, src Source, cfg SourceConfig) (*Table, error) {
	raw, err := readAll(ctx, src, cfg)
	if err != nil {
		return nil, err
	}
	t, err := NormalizeColumnsTransform{}.Transform(raw)
	if err != nil {
		return nil, err
	}
	return (&DateCastTransform{Fields: TemporalColumns(t.Schema)}).Transform(t)
}

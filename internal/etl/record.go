package etl

// ── Record Table ───────────────────────────────────────────
// Common in-memory format. Sources emit Records, the loader collects
// them into a Table, every stage returns a new Table.

// Field types.
const (
	FieldText     = "text"
	FieldInteger  = "integer"
	FieldDatetime = "datetime"
)

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "integer" | "datetime"
}

// Schema describes the ordered columns of a table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Record is a single row: one state's policy snapshot at one point in time.
// A nil value means the cell is missing.
type Record struct {
	Data map[string]any `json:"data"`
}

// Table is an ordered collection of records sharing one schema.
type Table struct {
	Schema  Schema
	Records []Record
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Records) }

// HasColumn reports whether the schema contains the named column.
func (t *Table) HasColumn(name string) bool { return t.Schema.Index(name) >= 0 }

// Column returns the values of a column in row order.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, &MissingColumnError{Column: name}
	}
	values := make([]any, len(t.Records))
	for i, r := range t.Records {
		values[i] = r.Data[name]
	}
	return values, nil
}

// Clone returns a copy that shares no maps or slices with t.
// Cell values are copied shallowly; all values a source produces are immutable.
func (t *Table) Clone() *Table {
	out := &Table{
		Schema:  Schema{Fields: append([]Field(nil), t.Schema.Fields...)},
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		data := make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			data[k] = v
		}
		out.Records[i] = Record{Data: data}
	}
	return out
}

// setField adds a field, or retypes it when it already exists.
func (t *Table) setField(name, typ string) {
	if i := t.Schema.Index(name); i >= 0 {
		t.Schema.Fields[i].Type = typ
		return
	}
	t.Schema.Fields = append(t.Schema.Fields, Field{Name: name, Type: typ})
}

package etl

// newTable builds a text table from column names and rows of cells.
func newTable(cols []string, rows ...[]any) *Table {
	t := &Table{}
	for _, c := range cols {
		t.Schema.Fields = append(t.Schema.Fields, Field{Name: c, Type: FieldText})
	}
	for _, row := range rows {
		data := make(map[string]any, len(cols))
		for i, c := range cols {
			data[c] = row[i]
		}
		t.Records = append(t.Records, Record{Data: data})
	}
	return t
}

// column returns a column's values, panicking if it is absent.
func column(t *Table, name string) []any {
	vals, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return vals
}

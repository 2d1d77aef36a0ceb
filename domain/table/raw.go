package table

// RawData is a header row plus string cells, before any type coercion.
type RawData struct {
	Headers []string   // Column headers, trimmed
	Rows    [][]string // Data rows, each len(Headers) long
}

// Column returns the raw cells of column i.
func (d *RawData) Column(i int) []string {
	out := make([]string, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out
}

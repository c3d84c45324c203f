package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared type of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumeric
	KindDatetime
	KindString
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindNumeric:  "numeric",
	KindDatetime: "datetime",
	KindString:   "string",
}

// String returns the lowercase name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind converts a kind name back to a Kind. Unrecognised names map to KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "float64", "int", "int64":
		return KindNumeric
	case "datetime", "date", "datetime64", "datetime64[ns]", "time":
		return KindDatetime
	case "string", "text", "object":
		return KindString
	default:
		return KindUnknown
	}
}

var (
	// ErrRaggedColumns is returned when columns of a dataset have different lengths
	ErrRaggedColumns = errors.New("columns have different lengths")
	// ErrDuplicateColumn is returned when two columns share a name
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Column is a named, typed column of raw cell text. Missing cells are empty strings.
type Column struct {
	Name  string
	Kind  Kind
	Cells []string
}

// Len returns the number of cells in the column
func (c Column) Len() int {
	return len(c.Cells)
}

// Floats parses every cell as a float64. Missing and unparsable cells become NaN.
func (c Column) Floats() []float64 {
	out := make([]float64, len(c.Cells))
	for i, cell := range c.Cells {
		v, ok := ParseFloat(cell)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

// Times parses every cell as a timestamp. The second slice reports which cells parsed.
func (c Column) Times() ([]time.Time, []bool) {
	times := make([]time.Time, len(c.Cells))
	valid := make([]bool, len(c.Cells))
	for i, cell := range c.Cells {
		if t, ok := ParseTime(cell); ok {
			times[i] = t
			valid[i] = true
		}
	}
	return times, valid
}

// Labels returns display text for each cell. Datetime cells are normalised to ISO 8601.
func (c Column) Labels() []string {
	out := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		if c.Kind == KindDatetime {
			if t, ok := ParseTime(cell); ok {
				out[i] = FormatTime(t)
				continue
			}
		}
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

// NewNumericColumn builds a numeric column from float values. NaN is stored as a missing cell.
func NewNumericColumn(name string, values []float64) Column {
	cells := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return Column{Name: name, Kind: KindNumeric, Cells: cells}
}

// Dataset is an immutable rectangular table of named columns.
type Dataset struct {
	Name    string
	columns []Column
	rows    int
}

// New creates a dataset from columns of equal length.
func New(name string, columns []Column) (*Dataset, error) {
	rows := 0
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("%w: column %q has %d cells, expected %d", ErrRaggedColumns, col.Name, col.Len(), rows)
		}
		if _, dup := seen[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = struct{}{}
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Dataset{Name: name, columns: cols, rows: rows}, nil
}

// FromRows builds a dataset from a header and row-major records, inferring column kinds.
// Short rows are padded with missing cells and long rows are truncated.
func FromRows(name string, header []string, records [][]string) (*Dataset, error) {
	columns := make([]Column, len(header))
	for j, h := range header {
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		columns[j] = Column{Name: strings.TrimSpace(h), Cells: cells}
		columns[j].Kind = InferKind(cells)
	}
	return New(name, dedupeNames(columns))
}

// Rows returns the number of rows
func (d *Dataset) Rows() int {
	if d == nil {
		return 0
	}
	return d.rows
}

// Width returns the number of columns
func (d *Dataset) Width() int {
	if d == nil {
		return 0
	}
	return len(d.columns)
}

// Empty reports whether the dataset has no rows or no columns
func (d *Dataset) Empty() bool {
	return d.Rows() == 0 || d.Width() == 0
}

// Columns returns the columns in declaration order. Cells must not be modified.
func (d *Dataset) Columns() []Column {
	if d == nil {
		return nil
	}
	out := make([]Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns the column names in declaration order
func (d *Dataset) ColumnNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// WithColumn returns a copy of the dataset with col appended, or replacing a column of the same name.
func (d *Dataset) WithColumn(col Column) (*Dataset, error) {
	if d == nil {
		return New("", []Column{col})
	}
	if d.Width() > 0 && col.Len() != d.rows {
		return nil, fmt.Errorf("%w: column %q has %d cells, expected %d", ErrRaggedColumns, col.Name, col.Len(), d.rows)
	}

	cols := make([]Column, 0, len(d.columns)+1)
	replaced := false
	for _, c := range d.columns {
		if c.Name == col.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, col)
	}
	return &Dataset{Name: d.Name, columns: cols, rows: col.Len()}, nil
}

// Records returns the header and row-major cell text, with datetime cells normalised.
func (d *Dataset) Records() ([]string, [][]string) {
	header := d.ColumnNames()
	records := make([][]string, d.Rows())
	labels := make([][]string, d.Width())
	for j, c := range d.Columns() {
		labels[j] = c.Labels()
	}
	for i := range records {
		rec := make([]string, len(labels))
		for j := range labels {
			rec[j] = labels[j][i]
		}
		records[i] = rec
	}
	return header, records
}

// Head returns a copy of the dataset limited to the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if d == nil || n >= d.rows {
		return d
	}
	if n < 0 {
		n = 0
	}
	cols := make([]Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Cells: c.Cells[:n:n]}
	}
	return &Dataset{Name: d.Name, columns: cols, rows: n}
}

// dedupeNames renames repeated headers the way spreadsheet readers do: "a", "a.1", "a.2".
func dedupeNames(columns []Column) []Column {
	counts := make(map[string]int, len(columns))
	for i := range columns {
		name := columns[i].Name
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, seen := counts[name]; seen {
			counts[name] = n + 1
			columns[i].Name = fmt.Sprintf("%s.%d", name, n+1)
			continue
		}
		counts[name] = 0
		columns[i].Name = name
	}
	return columns
}

package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ColumnSpec declares one column of a record snapshot
type ColumnSpec struct {
	Name string
	Kind Kind
}

// FromRecords builds a dataset from a grid snapshot: a column list plus row objects keyed by
// column name. Declared kinds are kept as given; KindUnknown is not re-inferred. When specs is
// empty the columns are the union of the row keys in sorted order.
func FromRecords(name string, specs []ColumnSpec, rows []map[string]any) (*Dataset, error) {
	if len(specs) == 0 {
		specs = specsFromKeys(rows)
	}

	columns := make([]Column, len(specs))
	for j, spec := range specs {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = cellText(row[spec.Name])
		}
		columns[j] = Column{Name: spec.Name, Kind: spec.Kind, Cells: cells}
	}
	return New(name, columns)
}

func specsFromKeys(rows []map[string]any) []ColumnSpec {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)

	specs := make([]ColumnSpec, len(names))
	for i, n := range names {
		specs[i] = ColumnSpec{Name: n}
	}
	return specs
}

// cellText stringifies a decoded JSON value
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return cellText(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return FormatTime(val)
	default:
		return fmt.Sprint(val)
	}
}

package dataset

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNothingToMerge is returned when Merge receives no datasets
var ErrNothingToMerge = errors.New("no datasets to merge")

// DateColumn returns the first datetime-typed column, or failing that the first column
// whose name contains "date". The boolean is false when neither exists.
func DateColumn(d *Dataset) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	for _, c := range d.columns {
		if c.Kind == KindDatetime {
			return c, true
		}
	}
	for _, c := range d.columns {
		if strings.Contains(strings.ToLower(c.Name), "date") {
			return c, true
		}
	}
	return Column{}, false
}

// MergeAll folds datasets left to right with Merge. A single dataset is returned as is.
func MergeAll(sets ...*Dataset) (*Dataset, error) {
	var out *Dataset
	for _, d := range sets {
		if d == nil {
			continue
		}
		if out == nil {
			out = d
			continue
		}
		merged, err := Merge(out, d)
		if err != nil {
			return nil, err
		}
		out = merged
	}
	if out == nil {
		return nil, ErrNothingToMerge
	}
	return out, nil
}

// Merge performs an outer join of left and right on their date columns. Keys are sorted
// ascending and duplicate keys produce every left/right pairing. Non-key columns present on
// both sides get "_x" and "_y" suffixes. When either side lacks a date column the two
// datasets are placed side by side by row position.
func Merge(left, right *Dataset) (*Dataset, error) {
	switch {
	case left == nil && right == nil:
		return nil, ErrNothingToMerge
	case left == nil:
		return right, nil
	case right == nil:
		return left, nil
	}

	lkey, lok := DateColumn(left)
	rkey, rok := DateColumn(right)
	if !lok || !rok {
		return joinPositional(left, right)
	}

	type keyedRow struct {
		key   string
		t     time.Time
		timed bool
	}
	index := func(c Column) []keyedRow {
		out := make([]keyedRow, c.Len())
		for i, cell := range c.Cells {
			t, ok := ParseTime(cell)
			key := strings.TrimSpace(cell)
			if ok {
				key = FormatTime(t)
			}
			out[i] = keyedRow{key: key, t: t, timed: ok}
		}
		return out
	}
	lrows, rrows := index(lkey), index(rkey)

	lpos := make(map[string][]int)
	rpos := make(map[string][]int)
	keys := make(map[string]keyedRow)
	var missing []int
	for i, kr := range lrows {
		if IsMissing(kr.key) {
			missing = append(missing, i)
			continue
		}
		lpos[kr.key] = append(lpos[kr.key], i)
		keys[kr.key] = kr
	}
	var rmissing []int
	for i, kr := range rrows {
		if IsMissing(kr.key) {
			rmissing = append(rmissing, i)
			continue
		}
		rpos[kr.key] = append(rpos[kr.key], i)
		if _, seen := keys[kr.key]; !seen {
			keys[kr.key] = kr
		}
	}

	ordered := make([]keyedRow, 0, len(keys))
	for _, kr := range keys {
		ordered = append(ordered, kr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.timed && b.timed:
			if !a.t.Equal(b.t) {
				return a.t.Before(b.t)
			}
			return a.key < b.key
		case a.timed != b.timed:
			return a.timed
		default:
			return a.key < b.key
		}
	})

	// pairs holds (left row, right row) indices; -1 marks an absent side.
	var pairs [][2]int
	var keyCells []string
	for _, kr := range ordered {
		ls, rs := lpos[kr.key], rpos[kr.key]
		switch {
		case len(ls) == 0:
			for _, r := range rs {
				pairs = append(pairs, [2]int{-1, r})
				keyCells = append(keyCells, kr.key)
			}
		case len(rs) == 0:
			for _, l := range ls {
				pairs = append(pairs, [2]int{l, -1})
				keyCells = append(keyCells, kr.key)
			}
		default:
			for _, l := range ls {
				for _, r := range rs {
					pairs = append(pairs, [2]int{l, r})
					keyCells = append(keyCells, kr.key)
				}
			}
		}
	}
	for _, l := range missing {
		pairs = append(pairs, [2]int{l, -1})
		keyCells = append(keyCells, "")
	}
	for _, r := range rmissing {
		pairs = append(pairs, [2]int{-1, r})
		keyCells = append(keyCells, "")
	}

	keyKind := KindDatetime
	if lkey.Kind != KindDatetime && rkey.Kind != KindDatetime {
		keyKind = lkey.Kind
	}
	columns := []Column{{Name: lkey.Name, Kind: keyKind, Cells: keyCells}}

	lcols := withoutColumn(left.columns, lkey.Name)
	rcols := withoutColumn(right.columns, rkey.Name)
	for i := range rcols {
		if rcols[i].Name == lkey.Name {
			rcols[i].Name += "_y"
		}
	}
	columns = append(columns, gather(lcols, rcols, pairs)...)

	return New(mergedName(left, right), columns)
}

// joinPositional places right's columns after left's, aligning rows by index.
func joinPositional(left, right *Dataset) (*Dataset, error) {
	n := left.Rows()
	if right.Rows() > n {
		n = right.Rows()
	}
	pairs := make([][2]int, n)
	for i := range pairs {
		pairs[i] = [2]int{-1, -1}
		if i < left.Rows() {
			pairs[i][0] = i
		}
		if i < right.Rows() {
			pairs[i][1] = i
		}
	}
	return New(mergedName(left, right), gather(left.Columns(), right.Columns(), pairs))
}

// gather materialises left and right columns for each row pair, suffixing clashing names.
func gather(lcols, rcols []Column, pairs [][2]int) []Column {
	lnames := make(map[string]struct{}, len(lcols))
	for _, c := range lcols {
		lnames[c.Name] = struct{}{}
	}
	rnames := make(map[string]struct{}, len(rcols))
	for _, c := range rcols {
		rnames[c.Name] = struct{}{}
	}

	pick := func(c Column, side int, suffix string, other map[string]struct{}) Column {
		name := c.Name
		if _, clash := other[name]; clash {
			name += suffix
		}
		cells := make([]string, len(pairs))
		for i, p := range pairs {
			if p[side] >= 0 {
				cells[i] = c.Cells[p[side]]
			}
		}
		return Column{Name: name, Kind: c.Kind, Cells: cells}
	}

	out := make([]Column, 0, len(lcols)+len(rcols))
	for _, c := range lcols {
		out = append(out, pick(c, 0, "_x", rnames))
	}
	for _, c := range rcols {
		out = append(out, pick(c, 1, "_y", lnames))
	}
	return out
}

func withoutColumn(cols []Column, name string) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

func mergedName(left, right *Dataset) string {
	switch {
	case left.Name == "":
		return right.Name
	case right.Name == "":
		return left.Name
	default:
		return left.Name + " + " + right.Name
	}
}

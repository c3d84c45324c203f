package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// ColumnRole is the semantic bucket a dataset column is classified into
type ColumnRole string

const (
	RoleDate   ColumnRole = "Date"
	RoleOpen   ColumnRole = "Open"
	RoleClose  ColumnRole = "Close"
	RoleVolume ColumnRole = "Volume"
)

// ComparableRoles lists the roles that produce figures and correlations, in output order.
var ComparableRoles = []ColumnRole{RoleOpen, RoleClose, RoleVolume}

// RoleMatch maps each role to the column names that matched it, in column order.
type RoleMatch map[ColumnRole][]string

// Usable reports whether role has enough matches to be compared (two columns).
func (m RoleMatch) Usable(role ColumnRole) bool {
	return len(m[role]) >= 2
}

// Pair returns the first two matched columns for role.
func (m RoleMatch) Pair(role ColumnRole) (string, string, bool) {
	cols := m[role]
	if len(cols) < 2 {
		return "", "", false
	}
	return cols[0], cols[1], true
}

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to NaN.
func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Defined reports whether the number carries a finite value
func (n Number) Defined() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Numbers converts a float slice
func Numbers(values []float64) []Number {
	out := make([]Number, len(values))
	for i, v := range values {
		out[i] = Number(v)
	}
	return out
}

// AxisID identifies a y axis of a figure
type AxisID string

const (
	AxisPrimary   AxisID = "y"
	AxisSecondary AxisID = "y2"
)

// AxisSide is the side of the plot an axis is drawn on
type AxisSide string

const (
	SideLeft  AxisSide = "left"
	SideRight AxisSide = "right"
)

// AxisScale is the value scale of an axis
type AxisScale string

const (
	ScaleLinear AxisScale = "linear"
	ScaleLog    AxisScale = "log"
)

// SeriesStyle is how a series is drawn
type SeriesStyle string

const (
	StyleLine SeriesStyle = "line"
	StyleBar  SeriesStyle = "bar"
)

// FigureKind distinguishes raw comparisons from smoothed ones
type FigureKind string

const (
	FigureComparison    FigureKind = "comparison"
	FigureMovingAverage FigureKind = "moving_average"
)

// Axis describes one y axis
type Axis struct {
	ID         AxisID    `json:"id"`
	Title      string    `json:"title"`
	Side       AxisSide  `json:"side"`
	Overlaying AxisID    `json:"overlaying,omitempty"`
	Scale      AxisScale `json:"scale"`
}

// Series is one plotted column, bound to an axis by ID
type Series struct {
	Name   string      `json:"name"`
	Column string      `json:"column"`
	AxisID AxisID      `json:"axis"`
	Style  SeriesStyle `json:"style"`
	Values []Number    `json:"values"`
}

// Figure is a renderer-independent chart descriptor
type Figure struct {
	ID      string     `json:"id"`
	Kind    FigureKind `json:"kind"`
	Role    ColumnRole `json:"role"`
	Title   string     `json:"title"`
	XColumn string     `json:"x_column"`
	X       []string   `json:"x"`
	Axes    []Axis     `json:"axes"`
	Series  []Series   `json:"series"`
}

// Axis looks up an axis by ID
func (f Figure) Axis(id AxisID) (Axis, bool) {
	for _, a := range f.Axes {
		if a.ID == id {
			return a, true
		}
	}
	return Axis{}, false
}

// CorrelationRecord is one row of the correlation table
type CorrelationRecord struct {
	Metric      ColumnRole `json:"metric"`
	Columns     []string   `json:"columns"`
	Correlation Number     `json:"pearson_correlation"`
	Defined     bool       `json:"defined"`
	Samples     int        `json:"samples"`
}

// DashboardState is the outcome of one derivation pass
type DashboardState string

const (
	StateNoData     DashboardState = "no_data"
	StateClassified DashboardState = "classified"
	StateError      DashboardState = "error"
	StateReady      DashboardState = "ready"
)

// TableColumn describes a column of the table preview
type TableColumn struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TablePreview is the leading slice of the merged dataset shown next to the charts
type TablePreview struct {
	Columns   []TableColumn `json:"columns"`
	Rows      [][]string    `json:"rows"`
	TotalRows int           `json:"total_rows"`
}

// Dashboard is the full payload returned to render surfaces
type Dashboard struct {
	State        DashboardState      `json:"state"`
	Message      string              `json:"message,omitempty"`
	Sources      []string            `json:"sources,omitempty"`
	DateColumn   string              `json:"date_column,omitempty"`
	Matches      RoleMatch           `json:"matches,omitempty"`
	Figures      []Figure            `json:"figures"`
	Correlations []CorrelationRecord `json:"correlations"`
	Table        *TablePreview       `json:"table,omitempty"`
}

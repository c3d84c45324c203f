package dataprocessing

import (
	"fmt"
	"strings"

	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

// FigureOptions controls presentation choices of the chart builder
type FigureOptions struct {
	// VolumeAsBar draws the primary Volume series as bars
	VolumeAsBar bool
	// VolumeLogScale puts both Volume axes on a log scale
	VolumeLogScale bool
}

var comparisonTitles = map[domain.ColumnRole]string{
	domain.RoleOpen:   "Open Price Comparison",
	domain.RoleClose:  "Close Price Comparison",
	domain.RoleVolume: "Trading Volume Comparison",
}

// MovingAverageColumn names the derived column holding the moving average of col
func MovingAverageColumn(col string) string {
	return fmt.Sprintf("%s_MA%d", col, MovingAverageWindow)
}

// BuildComparison builds a dual-axis figure plotting first on the primary axis and second on
// the secondary axis against dateCol.
func BuildComparison(ds *dataset.Dataset, dateCol, first, second string, role domain.ColumnRole, opts FigureOptions) (domain.Figure, error) {
	x, err := xLabels(ds, dateCol)
	if err != nil {
		return domain.Figure{}, err
	}
	a, err := numericColumn(ds, first)
	if err != nil {
		return domain.Figure{}, err
	}
	b, err := numericColumn(ds, second)
	if err != nil {
		return domain.Figure{}, err
	}

	scale := domain.ScaleLinear
	primaryStyle := domain.StyleLine
	if role == domain.RoleVolume {
		if opts.VolumeLogScale {
			scale = domain.ScaleLog
		}
		if opts.VolumeAsBar {
			primaryStyle = domain.StyleBar
		}
	}

	title, ok := comparisonTitles[role]
	if !ok {
		title = fmt.Sprintf("%s Comparison", role)
	}

	return domain.Figure{
		ID:      figureID(role, domain.FigureComparison),
		Kind:    domain.FigureComparison,
		Role:    role,
		Title:   title,
		XColumn: dateCol,
		X:       x,
		Axes:    dualAxes(first, second, scale),
		Series: []domain.Series{
			{Name: first, Column: first, AxisID: domain.AxisPrimary, Style: primaryStyle, Values: domain.Numbers(a)},
			{Name: second, Column: second, AxisID: domain.AxisSecondary, Style: domain.StyleLine, Values: domain.Numbers(b)},
		},
	}, nil
}

// BuildMovingAverage builds the 30-row moving-average variant of BuildComparison. The derived
// columns are added to a private copy of ds, which is returned alongside the figure.
func BuildMovingAverage(ds *dataset.Dataset, dateCol, first, second string, role domain.ColumnRole) (domain.Figure, *dataset.Dataset, error) {
	x, err := xLabels(ds, dateCol)
	if err != nil {
		return domain.Figure{}, nil, err
	}

	work := ds
	series := make([]domain.Series, 0, 2)
	for i, col := range []string{first, second} {
		values, err := numericColumn(ds, col)
		if err != nil {
			return domain.Figure{}, nil, err
		}
		ma := RollingMean(values, MovingAverageWindow)
		name := MovingAverageColumn(col)

		work, err = work.WithColumn(dataset.NewNumericColumn(name, ma))
		if err != nil {
			return domain.Figure{}, nil, fmt.Errorf("failed to add %s: %w", name, err)
		}

		axis := domain.AxisPrimary
		if i == 1 {
			axis = domain.AxisSecondary
		}
		series = append(series, domain.Series{
			Name:   fmt.Sprintf("%s %d-Day MA", col, MovingAverageWindow),
			Column: name,
			AxisID: axis,
			Style:  domain.StyleLine,
			Values: domain.Numbers(ma),
		})
	}

	axes := dualAxes(
		fmt.Sprintf("%s %d-Day Moving Average", first, MovingAverageWindow),
		fmt.Sprintf("%s %d-Day Moving Average", second, MovingAverageWindow),
		domain.ScaleLinear,
	)

	return domain.Figure{
		ID:      figureID(role, domain.FigureMovingAverage),
		Kind:    domain.FigureMovingAverage,
		Role:    role,
		Title:   fmt.Sprintf("%s %d-Day Moving Average Comparison", role, MovingAverageWindow),
		XColumn: dateCol,
		X:       x,
		Axes:    axes,
		Series:  series,
	}, work, nil
}

// BuildFigures produces one comparison figure per usable role followed by one moving-average
// figure per usable role. The returned dataset is ds extended with the moving-average columns.
func BuildFigures(ds *dataset.Dataset, c Classification, opts FigureOptions) ([]domain.Figure, *dataset.Dataset, error) {
	roles := c.UsableRoles()
	comparisons := make([]domain.Figure, 0, len(roles))
	averages := make([]domain.Figure, 0, len(roles))

	work := ds
	for _, role := range roles {
		first, second, _ := c.Matches.Pair(role)

		fig, err := BuildComparison(work, c.DateColumn, first, second, role, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("%s comparison: %w", strings.ToLower(string(role)), err)
		}
		comparisons = append(comparisons, fig)

		ma, next, err := BuildMovingAverage(work, c.DateColumn, first, second, role)
		if err != nil {
			return nil, nil, fmt.Errorf("%s moving average: %w", strings.ToLower(string(role)), err)
		}
		averages = append(averages, ma)
		work = next
	}

	return append(comparisons, averages...), work, nil
}

func dualAxes(primaryTitle, secondaryTitle string, scale domain.AxisScale) []domain.Axis {
	return []domain.Axis{
		{ID: domain.AxisPrimary, Title: primaryTitle, Side: domain.SideLeft, Scale: scale},
		{ID: domain.AxisSecondary, Title: secondaryTitle, Side: domain.SideRight, Overlaying: domain.AxisPrimary, Scale: scale},
	}
}

func figureID(role domain.ColumnRole, kind domain.FigureKind) string {
	suffix := "comparison"
	if kind == domain.FigureMovingAverage {
		suffix = fmt.Sprintf("ma%d", MovingAverageWindow)
	}
	return fmt.Sprintf("%s-%s", strings.ToLower(string(role)), suffix)
}

func xLabels(ds *dataset.Dataset, name string) ([]string, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col.Labels(), nil
}

func numericColumn(ds *dataset.Dataset, name string) ([]float64, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col.Floats(), nil
}

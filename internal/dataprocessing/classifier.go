package dataprocessing

import (
	"strings"

	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

// Classification is the outcome of bucketing a dataset's columns into roles
type Classification struct {
	DateColumn string           `json:"date_column,omitempty"`
	HasDate    bool             `json:"has_date"`
	Matches    domain.RoleMatch `json:"matches"`
}

// UsableRoles returns the comparable roles with at least two matches, in output order
func (c Classification) UsableRoles() []domain.ColumnRole {
	var roles []domain.ColumnRole
	for _, role := range domain.ComparableRoles {
		if c.Matches.Usable(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// Classify buckets columns into Date, Open, Close and Volume.
//
// Date candidates are the datetime-typed columns; when none are typed, columns whose name
// contains "date" are used instead. The first candidate becomes the date column.
// Open, Close and Volume collect every column whose lower-cased name contains the lower-cased
// role label. A column may land in more than one bucket.
func Classify(ds *dataset.Dataset) Classification {
	matches := domain.RoleMatch{}
	for _, role := range append([]domain.ColumnRole{domain.RoleDate}, domain.ComparableRoles...) {
		matches[role] = []string{}
	}

	columns := ds.Columns()
	for _, col := range columns {
		if col.Kind == dataset.KindDatetime {
			matches[domain.RoleDate] = append(matches[domain.RoleDate], col.Name)
		}
	}
	if len(matches[domain.RoleDate]) == 0 {
		for _, col := range columns {
			if nameContains(col.Name, domain.RoleDate) {
				matches[domain.RoleDate] = append(matches[domain.RoleDate], col.Name)
			}
		}
	}

	for _, role := range domain.ComparableRoles {
		for _, col := range columns {
			if nameContains(col.Name, role) {
				matches[role] = append(matches[role], col.Name)
			}
		}
	}

	c := Classification{Matches: matches}
	if dates := matches[domain.RoleDate]; len(dates) > 0 {
		c.DateColumn = dates[0]
		c.HasDate = true
	}
	return c
}

func nameContains(name string, role domain.ColumnRole) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(string(role)))
}

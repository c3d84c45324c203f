package dataset

import (
	"strconv"
	"strings"
	"time"
)

// missingTokens are cell values treated as absent, matching common CSV conventions.
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
	"nat":  {},
	"-":    {},
}

// timeLayouts are tried in order when parsing datetime cells.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// IsMissing reports whether a cell should be treated as an absent value
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// ParseFloat parses a numeric cell. Thousands separators are accepted.
func ParseFloat(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	s := strings.TrimSpace(cell)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if !strings.Contains(s, ",") {
			return 0, false
		}
		v, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, false
		}
	}
	return v, true
}

// ParseTime parses a datetime cell using the known layouts
func ParseTime(cell string) (time.Time, bool) {
	if IsMissing(cell) {
		return time.Time{}, false
	}
	s := strings.TrimSpace(cell)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders a timestamp as a date, or as RFC 3339 when it carries a time of day.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// InferKind picks the narrowest kind that fits every non-missing cell.
// Numeric wins over datetime so that plain integers are never read as dates.
func InferKind(cells []string) Kind {
	present := 0
	numeric, datetime := true, true
	for _, cell := range cells {
		if IsMissing(cell) {
			continue
		}
		present++
		if numeric {
			if _, ok := ParseFloat(cell); !ok {
				numeric = false
			}
		}
		if datetime {
			if _, ok := ParseTime(cell); !ok {
				datetime = false
			}
		}
		if !numeric && !datetime {
			return KindString
		}
	}

	switch {
	case present == 0:
		return KindUnknown
	case numeric:
		return KindNumeric
	case datetime:
		return KindDatetime
	default:
		return KindString
	}
}

package ir

import (
	"math"
	"strconv"
	"strings"
)

// FormatPeriod renders a period the shortest way that round-trips
// (5, 0.2, -5).
func FormatPeriod(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// TableName returns "{sheet}_PeriodAbs_{|period|}" with the decimal point
// replaced by an underscore. Periods of equal magnitude share a name.
func TableName(sheet string, period float64) string {
	return sheet + "_PeriodAbs_" + strings.ReplaceAll(FormatPeriod(math.Abs(period)), ".", "_")
}

// BindingAlias returns the UI alias of a property, e.g. "CurrentSpeed".
func BindingAlias(property string) string {
	return "Current" + property
}

// BindingPrefix returns the qualified-name prefix an alias resolves through.
func BindingPrefix(property string) string {
	return property + "_M"
}

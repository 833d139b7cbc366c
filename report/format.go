package report

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// formatNumber renders v with en-US thousands separators and at most three
// fraction digits. Missing or non-numeric values render as "0".
func formatNumber(v any) string {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	f = math.Round(f*1000) / 1000
	if f == 0 {
		// avoid "-0"
		f = 0
	}
	return humanize.Commaf(f)
}

// formatInt renders an integer with thousands separators.
func formatInt(v int64) string {
	return humanize.Comma(v)
}

// toInt64 coerces a cell to an integer counter; anything unusable is 0.
func toInt64(v any) int64 {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

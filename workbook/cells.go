package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"minutebook/timeline"
)

// DateCell converts an Excel date serial to "2006-01-02". Other values are
// returned unchanged.
func DateCell(v string) string {
	n, ok := serial(v)
	if !ok || n < 1 {
		return v
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return v
	}
	return t.Format(timeline.DateLayout)
}

// ClockCell converts an Excel time serial (a fraction of a day, possibly with
// a date part) to "15:04". Other values are returned unchanged.
func ClockCell(v string) string {
	n, ok := serial(v)
	if !ok || n < 0 {
		return v
	}
	_, frac := math.Modf(n)
	minutes := int(math.Round(frac*24*60)) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func serial(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

package balance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
	"energypassport/internal/units"
)

// lb and rb stand in for a word boundary that also treats Cyrillic letters
// as word characters; Go's \b only knows ASCII
const (
	lb = `(?:^|[^\p{L}\p{N}])`
	rb = `(?:[^\p{L}\p{N}]|$)`
)

var (
	periodYearRe    = regexp.MustCompile(lb + `(20\d{2})` + rb)
	quarterLatinRe  = regexp.MustCompile(lb + `q([1-4])` + rb)
	quarterDigitRe  = regexp.MustCompile(`(?:^|[^0-9])([1-4])\s*(?:-?(?:й|ый|ой))?\s*квартал`)
	quarterRomanRe  = regexp.MustCompile(`(?:^|[^a-z])(iv|i{1,3})\s*квартал`)
	monthNumberRe   = regexp.MustCompile(lb + `(0[1-9]|1[0-2]|00)` + rb)
	monthDotYearRe  = regexp.MustCompile(lb + `(0?[1-9]|1[0-2])\.(20\d{2})` + rb)
	yearDashMonthRe = regexp.MustCompile(lb + `(20\d{2})-(0?[1-9]|1[0-2])` + rb)
)

var romanQuarters = map[string]int{"i": 1, "ii": 2, "iii": 3, "iv": 4}

// InferPeriod period label from a sheet name or header text, borrowing the
// year from the filename when the text has none. Returns "" when no year is
// known at all.
func InferPeriod(text, filename string) string {
	fileYear := periodYearRe.FindStringSubmatch(filename)
	if strings.TrimSpace(text) == "" {
		if fileYear != nil {
			return fileYear[1]
		}
		return ""
	}

	year := ""
	if m := periodYearRe.FindStringSubmatch(text); m != nil {
		year = m[1]
	} else if fileYear != nil {
		year = fileYear[1]
	}
	if year == "" {
		return ""
	}

	lower := parser.NormalizeText(text)
	if q, ok := quarterInText(lower); ok {
		return fmt.Sprintf("%s-Q%d", year, q)
	}
	if m, ok := parser.MonthInText(lower); ok {
		return fmt.Sprintf("%s-Q%d", year, units.MonthToQuarter(m))
	}
	if m := monthNumberRe.FindStringSubmatch(lower); m != nil {
		if m[1] == "00" {
			return year
		}
		month, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%s-Q%d", year, units.MonthToQuarter(month))
	}
	if m := monthDotYearRe.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%s-Q%d", m[2], units.MonthToQuarter(month))
	}
	if m := yearDashMonthRe.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-Q%d", m[1], units.MonthToQuarter(month))
	}
	return year + "-unknown"
}

func quarterInText(lower string) (int, bool) {
	if m := quarterLatinRe.FindStringSubmatch(lower); m != nil {
		q, _ := strconv.Atoi(m[1])
		return q, true
	}
	if m := quarterDigitRe.FindStringSubmatch(lower); m != nil {
		q, _ := strconv.Atoi(m[1])
		return q, true
	}
	if m := quarterRomanRe.FindStringSubmatch(lower); m != nil {
		return romanQuarters[m[1]], true
	}
	return 0, false
}

// periodOrUnknown caller-side fallback for an empty inference
func periodOrUnknown(p string) string {
	if p == "" {
		return model.PeriodUnknown
	}
	return p
}

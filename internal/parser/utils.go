package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	yearRe       = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	groupedIntRe = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)
)

// Plausible calendar year range for year cells
const (
	MinYear = 1990
	MaxYear = 2100
)

// CellString textual form of a cell
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return ""
}

// IsNumber true for cells stored as numbers
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, int, int64:
		return true
	}
	return false
}

// ParseNumber tolerant numeric conversion: spaces and comma-grouped digits
// ("1,200") as thousands separators, otherwise comma as decimal separator.
// Anything else is absent.
func ParseNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, "\u00a0", "")
		if groupedIntRe.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ParseOptionalNumber like ParseNumber but returns nil when absent
func ParseOptionalNumber(v any) *float64 {
	f, ok := ParseNumber(v)
	if !ok {
		return nil
	}
	return &f
}

// CellInt integral numeric cell value
func CellInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		if i, isInt := v.(int); isInt {
			return i, true
		}
		return 0, false
	}
	if f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// YearValue integral cell that looks like a calendar year
func YearValue(v any) (int, bool) {
	if n, ok := CellInt(v); ok && n >= MinYear && n <= MaxYear {
		return n, true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil && n >= MinYear && n <= MaxYear {
			return n, true
		}
	}
	return 0, false
}

// FindYear first plausible year mentioned in text
func FindYear(text string) (int, bool) {
	m := yearRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, _ := strconv.Atoi(m[1])
	return n, true
}

// Cell safe index access
func Cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// RowText lower-cased text of all non-empty cells
func RowText(row []any) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if s := strings.TrimSpace(CellString(c)); s != "" {
			parts = append(parts, strings.ToLower(s))
		}
	}
	return strings.Join(parts, " ")
}

// RowEmpty true when every cell is empty
func RowEmpty(row []any) bool {
	for _, c := range row {
		if strings.TrimSpace(CellString(c)) != "" {
			return false
		}
	}
	return true
}

// NonEmptyCount number of non-empty cells
func NonEmptyCount(row []any) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(CellString(c)) != "" {
			n++
		}
	}
	return n
}

// NormalizeText lower-case, trimmed, whitespace collapsed
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ё", "е")
	return whitespaceRe.ReplaceAllString(s, " ")
}

// ContainsAny reports whether text contains any keyword
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

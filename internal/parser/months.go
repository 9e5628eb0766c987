package parser

import "strings"

// MonthNamesRU canonical Russian month labels, index 0 = January
var MonthNamesRU = []string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var fullMonthAliases = map[string]int{
	"январь": 1, "февраль": 2, "март": 3, "апрель": 4, "май": 5, "июнь": 6,
	"июль": 7, "август": 8, "сентябрь": 9, "октябрь": 10, "ноябрь": 11, "декабрь": 12,
	"января": 1, "февраля": 2, "марта": 3, "апреля": 4, "мая": 5, "июня": 6,
	"июля": 7, "августа": 8, "сентября": 9, "октября": 10, "ноября": 11, "декабря": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var shortMonthAliases = map[string]int{
	"янв": 1, "фев": 2, "мар": 3, "апр": 4, "май": 5, "мая": 5, "июн": 6,
	"июл": 7, "авг": 8, "сен": 9, "окт": 10, "ноя": 11, "дек": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// MonthFromPrefix matches the first three runes of the lower-cased label
// against the short alias table ("sept" is accepted as well).
func MonthFromPrefix(label string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(s, "sept") {
		return 9, true
	}
	r := []rune(s)
	if len(r) < 3 {
		return 0, false
	}
	m, ok := shortMonthAliases[string(r[:3])]
	return m, ok
}

// MonthFromName matches a full month name (Cyrillic or Latin), tolerating
// trailing text such as "Январь 2022".
func MonthFromName(label string) (int, bool) {
	s := NormalizeText(label)
	if s == "" {
		return 0, false
	}
	if m, ok := fullMonthAliases[s]; ok {
		return m, true
	}
	first := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '.' || r == ',' || r == '-' || r == '/'
	})
	if len(first) > 0 {
		if m, ok := fullMonthAliases[first[0]]; ok {
			return m, true
		}
		if m, ok := shortMonthAliases[first[0]]; ok {
			return m, true
		}
	}
	return 0, false
}

var textMonthOrder = []string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
	"янв", "фев", "мар", "апр", "июн", "июл", "авг", "сен", "окт", "ноя", "дек",
}

// MonthInText first month name contained anywhere in text, checking full
// names before abbreviations.
func MonthInText(text string) (int, bool) {
	s := NormalizeText(text)
	for _, alias := range textMonthOrder {
		if !strings.Contains(s, alias) {
			continue
		}
		if m, ok := fullMonthAliases[alias]; ok {
			return m, true
		}
		return shortMonthAliases[alias], true
	}
	return 0, false
}

// MonthLabel canonical Russian label for 1..12
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return MonthNamesRU[m-1]
}

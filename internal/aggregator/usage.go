package aggregator

import (
	"log"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// Usage categories of consumed energy
const (
	UsageTechnological = "technological"
	UsageHousehold     = "household"
	UsageProduction    = "production"
	UsageOwnNeeds      = "own_needs"
)

// UsageCategories in reporting order
var UsageCategories = []string{UsageTechnological, UsageProduction, UsageOwnNeeds, UsageHousehold}

const (
	usageScanRows   = 50
	usageHeaderRows = 5
)

// usageKeywords checked in order, first match wins
var usageKeywords = []struct {
	Category string
	Keywords []string
}{
	{UsageTechnological, []string{"тех", "технологич", "тех-потер"}},
	{UsageHousehold, []string{"хоз", "бытов", "хоз-быт"}},
	{UsageProduction, []string{"производств", "произв"}},
	{UsageOwnNeeds, []string{"собствен", "с.н.", "нужды"}},
}

// defaultUsageYearColumns fact columns of the standard overconsumption report
// (A name, B norm, then fact/percent pairs per year)
var defaultUsageYearColumns = map[int]int{2022: 2, 2023: 4, 2024: 6}

func usageCategory(label string) string {
	text := parser.NormalizeText(label)
	for _, kw := range usageKeywords {
		if parser.ContainsAny(text, kw.Keywords) {
			return kw.Category
		}
	}
	return ""
}

// ParseUsageCategories yearly consumption by category of use, read from rows
// whose first cell names a category. Years come from the first header row
// carrying year cells, else from the standard column positions. Returns nil
// when no category row holds a number.
func ParseUsageCategories(wb model.Workbook) map[int]map[string]float64 {
	for _, sh := range wb.Sheets {
		if out := parseUsageSheet(sh); len(out) > 0 {
			log.Printf("[aggregator] usage categories from sheet %q: years=%d", sh.Name, len(out))
			return out
		}
	}
	return nil
}

func parseUsageSheet(sh model.Sheet) map[int]map[string]float64 {
	yearCols := usageYearColumns(sh.Rows)
	out := map[int]map[string]float64{}
	for i, row := range sh.Rows {
		if i >= usageScanRows {
			break
		}
		label, ok := parser.Cell(row, 0).(string)
		if !ok {
			continue
		}
		category := usageCategory(label)
		if category == "" {
			continue
		}
		for year, col := range yearCols {
			if !parser.IsNumber(parser.Cell(row, col)) {
				continue
			}
			v, _ := parser.ParseNumber(parser.Cell(row, col))
			if out[year] == nil {
				out[year] = map[string]float64{}
			}
			out[year][category] = v
		}
	}
	for _, cats := range out {
		if _, ok := cats[UsageOwnNeeds]; !ok {
			cats[UsageOwnNeeds] = 0
		}
	}
	return out
}

func usageYearColumns(rows [][]any) map[int]int {
	for i := 0; i < usageHeaderRows && i < len(rows); i++ {
		cols := map[int]int{}
		for c, v := range rows[i] {
			if y, ok := parser.YearValue(v); ok {
				if _, seen := cols[y]; !seen {
					cols[y] = c
				}
			}
		}
		if len(cols) > 0 {
			return cols
		}
	}
	return defaultUsageYearColumns
}

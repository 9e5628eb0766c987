package aggregator

import (
	"fmt"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
	"energypassport/internal/units"
)

const (
	headerScanRows = 3
	monthScanCells = 3
	noDefault      = -1
)

// fieldSpec where one month value lives: a header keyword match, or
// a default offset from the month-label column
type fieldSpec struct {
	Field    string
	Keywords []string
	Exclude  []string
	Offset   int
}

// layout describes one resource sheet family
type layout struct {
	Resource string
	Fields   []fieldSpec
	// Numbered allows the "month number in first column" template
	Numbered bool
	// Derive adds computed fields to a month's values
	Derive func(values map[string]*float64)
}

var electricityLayout = layout{
	Resource: model.ResourceElectricity,
	Fields: []fieldSpec{
		{
			Field: model.FieldActiveKWh,
			Keywords: []string{
				"активная квт/ч", "активная квтч", "активная квт·ч", "active kwh",
				"квт·ч", "квтч", "kwh", "активная энергия",
			},
			Exclude: []string{"реакт", "reactive"},
			Offset:  1,
		},
		{
			Field: model.FieldReactiveKVarh,
			Keywords: []string{
				"реактивная квар/ч", "реактивная кварч", "реактивная квар·ч", "reactive kvarh",
				"квар·ч", "кварч", "kvarh", "реактивная",
			},
			Exclude: []string{"мощност"},
			Offset:  2,
		},
		{
			Field:    model.FieldCostSum,
			Keywords: []string{"сумма квт/ч", "сумма", "стоимость", "cost", "цена", "price", "итого сум"},
			Offset:   4,
		},
		{
			Field: "active_power",
			Keywords: []string{
				"расход активной мощности", "мощность квт", "active power", "power kw",
				"расход мощности", "активная мощность", "мощность активная",
			},
			Exclude: []string{"квт·ч", "квтч"},
			Offset:  noDefault,
		},
		{
			Field:    "reactive_power",
			Keywords: []string{"реактивная мощность", "reactive power", "мощность квар"},
			Offset:   noDefault,
		},
	},
	Numbered: true,
}

var gasRowLayout = layout{
	Resource: model.ResourceGas,
	Fields: []fieldSpec{
		{Field: model.FieldCostSum, Keywords: []string{"сум", "cost", "стоимость"}, Offset: 1},
		{Field: model.FieldVolumeM3, Keywords: []string{"м3", "м³", "volume", "объем"}, Offset: 2},
	},
}

var waterLayout = layout{
	Resource: model.ResourceWater,
	Fields: []fieldSpec{
		{Field: model.FieldVolumeM3, Keywords: []string{"м3", "м³", "volume", "объем"}, Offset: 1},
		{Field: model.FieldCostSum, Keywords: []string{"сум", "cost", "стоимость"}, Offset: 2},
	},
}

// productionColumns product columns of the production sheet; the last one is
// the sheet's own total ("Жами")
var productionColumns = []string{"Труба хвс", "Канал труба", "Канал фитинг", "Фит хвс и гвс", "Теплый пол", "Жами"}

var productionLayout = func() layout {
	l := layout{Resource: "production"}
	for i, name := range productionColumns {
		l.Fields = append(l.Fields, fieldSpec{Field: name, Offset: i + 1})
	}
	l.Derive = func(values map[string]*float64) {
		if total := values["Жами"]; total != nil {
			values[model.FieldProduction] = model.Float(*total)
			return
		}
		sum, any := 0.0, false
		for _, name := range productionColumns[:len(productionColumns)-1] {
			if v := values[name]; v != nil {
				sum += *v
				any = true
			}
		}
		if any {
			values[model.FieldProduction] = model.Float(sum)
		}
	}
	return l
}()

// columnsByHeader keyword layer: each header cell is claimed by at most one
// field, first matching field wins, first matching column wins
func columnsByHeader(rows [][]any, specs []fieldSpec) map[string]int {
	cols := map[string]int{}
	for _, row := range rows {
		for idx, c := range row {
			s, ok := c.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			text := parser.NormalizeText(s)
			for _, fs := range specs {
				if _, taken := cols[fs.Field]; taken {
					continue
				}
				if len(fs.Keywords) == 0 || !parser.ContainsAny(text, fs.Keywords) {
					continue
				}
				if parser.ContainsAny(text, fs.Exclude) {
					continue
				}
				cols[fs.Field] = idx
				break
			}
		}
	}
	return cols
}

// resolveColumn header match, else month column + default offset unless that
// column was claimed by another field's header
func resolveColumn(fs fieldSpec, header map[string]int, monthCol int) (int, bool) {
	if c, ok := header[fs.Field]; ok {
		return c, true
	}
	if fs.Offset == noDefault {
		return 0, false
	}
	col := monthCol + fs.Offset
	for _, claimed := range header {
		if claimed == col {
			return 0, false
		}
	}
	return col, true
}

// findMonth month name in the first few cells of a row
func findMonth(row []any) (month, col int, label string, ok bool) {
	return findMonthWithin(row, monthScanCells)
}

// rowYear the first non-empty cell of a row without a month label, when it
// is a year and sits among the leading cells
func rowYear(row []any) (int, bool) {
	for i := 0; i < monthScanCells && i < len(row); i++ {
		if strings.TrimSpace(parser.CellString(row[i])) == "" {
			continue
		}
		return parser.YearValue(row[i])
	}
	return 0, false
}

// headerYear first year cell in the leading non-month rows
func headerYear(rows [][]any, scan int) (int, bool) {
	for i := 0; i < scan && i < len(rows); i++ {
		if _, _, _, isMonth := findMonth(rows[i]); isMonth {
			continue
		}
		for _, c := range rows[i] {
			if y, ok := parser.YearValue(c); ok {
				return y, true
			}
		}
	}
	return 0, false
}

// sheetWalker accumulates month entries of one sheet into a dataset
type sheetWalker struct {
	ds          *model.AggregatedDataset
	layout      layout
	header      map[string]int
	unknownYear bool
}

func newSheetWalker(ds *model.AggregatedDataset, l layout, rows [][]any) *sheetWalker {
	head := rows
	if len(head) > headerScanRows {
		head = head[:headerScanRows]
	}
	return &sheetWalker{ds: ds, layout: l, header: columnsByHeader(head, l.Fields)}
}

func (w *sheetWalker) add(year, month, monthCol int, label string, row []any) {
	values := map[string]*float64{}
	for _, fs := range w.layout.Fields {
		col, ok := resolveColumn(fs, w.header, monthCol)
		if !ok {
			continue
		}
		v := parser.ParseOptionalNumber(parser.Cell(row, col))
		if fs.Offset == noDefault && v == nil {
			continue
		}
		values[fs.Field] = v
	}
	if w.layout.Derive != nil {
		w.layout.Derive(values)
	}
	w.addValues(year, month, label, values)
}

func (w *sheetWalker) addValues(year, month int, label string, values map[string]*float64) {
	q := units.MonthToQuarter(month)
	key := units.QuarterKey(year, q)
	if year == 0 {
		key = fmt.Sprintf("unknown-Q%d", q)
		w.unknownYear = true
	}
	rec := w.ds.Quarter(w.layout.Resource, year, q, key)
	rec.Months = append(rec.Months, model.MonthEntry{Month: label, Values: values})
}

// walkNamed rows with month names; a year row switches the current year
func (w *sheetWalker) walkNamed(rows [][]any, fallbackYear int) {
	current := 0
	for _, row := range rows {
		if parser.RowEmpty(row) {
			continue
		}
		month, col, label, ok := findMonth(row)
		if !ok {
			if y, isYear := rowYear(row); isYear {
				current = y
			}
			continue
		}
		year := current
		if year == 0 {
			year = fallbackYear
		}
		w.add(year, month, col, label, row)
	}
}

var numberedHeaderWords = []string{"оаж", "сум", "киловат", "месяц", "год", "наименование"}

// numberedLayout true when no row carries a month name but some row starts
// with a plain month number
func numberedLayout(rows [][]any) bool {
	hasNumber := false
	for _, row := range rows {
		if _, _, _, ok := findMonth(row); ok {
			return false
		}
		if _, ok := monthNumber(parser.Cell(row, 0)); ok {
			hasNumber = true
		}
	}
	return hasNumber
}

func monthNumber(v any) (int, bool) {
	n, ok := parser.CellInt(v)
	if !ok || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

// walkNumbered data rows are assigned to years in blocks of twelve counted
// from baseYear, regardless of the month numbers themselves. Blank or skipped
// rows shift every later row into the wrong year.
func (w *sheetWalker) walkNumbered(rows [][]any, baseYear int) {
	dataRows := 0
	for _, row := range rows {
		first := parser.Cell(row, 0)
		if s, ok := first.(string); ok && parser.ContainsAny(parser.NormalizeText(s), numberedHeaderWords) {
			continue
		}
		month, ok := monthNumber(first)
		if !ok {
			continue
		}
		year := 0
		if baseYear != 0 {
			year = baseYear + dataRows/12
		}
		dataRows++
		w.add(year, month, 0, parser.MonthLabel(month), row)
	}
}

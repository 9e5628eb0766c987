package aggregator

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// sheetTarget one expected sheet family of a multi-resource workbook
type sheetTarget struct {
	MissingLabel string
	Candidates   []string
	Keywords     []string
	Parse        func(ds *model.AggregatedDataset, sh *model.Sheet)
}

var (
	productionTarget = sheetTarget{
		MissingLabel: "Килограмм да",
		Candidates:   []string{"Килограмм да", "Производство", "Production"},
		Keywords:     []string{"килограмм", "производ", "production"},
		Parse:        parseProduction,
	}
	electricityTarget = sheetTarget{
		MissingLabel: "ЭЛЕКТР (или альтернативные названия)",
		Candidates: []string{
			"ЭЛЕКТР", "электр ", "Электроэнергия", "Электричество", "ТП", "Electricity",
			"ЭЛЕКТРО", "ЭЛЕКТРОЭНЕРГИЯ", "Энергоресурсы", "ELECTRO", "ELECTRIC",
			"Реал 00-04", "Баланс 00-04",
		},
		Keywords: []string{"электр", "electric", "тп", "реал", "баланс", "реализация"},
		Parse:    parseElectricity,
	}
	gasTarget = sheetTarget{
		MissingLabel: "ГАЗ",
		Candidates:   []string{"ГАЗ", "газ", "Gas"},
		Keywords:     []string{"газ", "gas"},
		Parse:        parseGas,
	}
	waterTarget = sheetTarget{
		MissingLabel: "СУВ",
		Candidates:   []string{"СУВ", "Вода", "Water"},
		Keywords:     []string{"сув", "вода", "water"},
		Parse:        parseWater,
	}
	workbookTargets = []sheetTarget{productionTarget, electricityTarget, gasTarget, waterTarget}
)

// SheetFamilies missing-sheet labels of every family a multi-resource
// workbook is checked for
func SheetFamilies() []string {
	out := make([]string, 0, len(workbookTargets))
	for _, t := range workbookTargets {
		out = append(out, t.MissingLabel)
	}
	return out
}

// AggregateFile loads path and aggregates it; load failures are returned
func AggregateFile(path string) (*model.AggregatedDataset, error) {
	wb, err := parser.LoadWorkbook(path)
	if err != nil {
		return nil, err
	}
	return Aggregate(wb, path)
}

// Aggregate builds the quarterly dataset of every resource sheet found in wb.
// Files whose name names a single resource (gas, water) are read from their
// first sheet without reporting the other families as missing. CheckedSheets
// lists the families the file was searched for.
func Aggregate(wb model.Workbook, source string) (*model.AggregatedDataset, error) {
	ds := model.NewAggregatedDataset(source)
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: %s: no sheets", parser.ErrWorkbookLoad, source)
	}

	if target, ok := singleResourceTarget(source); ok {
		sh := findSheet(wb, target)
		if sh == nil {
			sh = &wb.Sheets[0]
		}
		ds.CheckedSheets = []string{target.MissingLabel}
		target.Parse(ds, sh)
	} else {
		for _, target := range workbookTargets {
			ds.CheckedSheets = append(ds.CheckedSheets, target.MissingLabel)
			sh := findSheet(wb, target)
			if sh == nil {
				ds.MissingSheets = append(ds.MissingSheets, target.MissingLabel)
				continue
			}
			target.Parse(ds, sh)
		}
	}

	ComputeQuarterTotals(ds.Resources)
	log.Printf("[aggregator] %s: resources=%d missing=%v", filepath.Base(source), len(ds.Resources), ds.MissingSheets)
	return ds, nil
}

func singleResourceTarget(source string) (sheetTarget, bool) {
	name := parser.NormalizeText(filepath.Base(source))
	switch {
	case parser.ContainsAny(name, []string{"газ", "gas", "gaz"}):
		return gasTarget, true
	case parser.ContainsAny(name, []string{"вода", "сув", "water", "voda", "водоснаб"}):
		return waterTarget, true
	}
	return sheetTarget{}, false
}

// findSheet exact candidate, then trimmed case-insensitive candidate, then keyword
func findSheet(wb model.Workbook, t sheetTarget) *model.Sheet {
	for _, c := range t.Candidates {
		if sh, ok := wb.Sheet(c); ok {
			return sh
		}
	}
	for _, c := range t.Candidates {
		want := parser.NormalizeText(c)
		for i := range wb.Sheets {
			if parser.NormalizeText(wb.Sheets[i].Name) == want {
				return &wb.Sheets[i]
			}
		}
	}
	for i := range wb.Sheets {
		if parser.ContainsAny(parser.NormalizeText(wb.Sheets[i].Name), t.Keywords) {
			return &wb.Sheets[i]
		}
	}
	return nil
}

func noteUnknownYear(ds *model.AggregatedDataset, w *sheetWalker, sheet string) {
	if !w.unknownYear {
		return
	}
	ds.Notes = append(ds.Notes, fmt.Sprintf("%s: year not found, months keyed by quarter only", sheet))
}

func parseElectricity(ds *model.AggregatedDataset, sh *model.Sheet) {
	w := newSheetWalker(ds, electricityLayout, sh.Rows)
	year, _ := headerYear(sh.Rows, headerScanRows)
	if electricityLayout.Numbered && numberedLayout(sh.Rows) {
		w.walkNumbered(sh.Rows, year)
	} else {
		w.walkNamed(sh.Rows, year)
	}
	noteUnknownYear(ds, w, sh.Name)
}

func parseWater(ds *model.AggregatedDataset, sh *model.Sheet) {
	w := newSheetWalker(ds, waterLayout, sh.Rows)
	year, _ := headerYear(sh.Rows, headerScanRows)
	w.walkNamed(sh.Rows, year)
	noteUnknownYear(ds, w, sh.Name)
}

func parseProduction(ds *model.AggregatedDataset, sh *model.Sheet) {
	w := newSheetWalker(ds, productionLayout, sh.Rows)
	year, _ := headerYear(sh.Rows, headerScanRows)
	w.walkNamed(sh.Rows, year)
	noteUnknownYear(ds, w, sh.Name)
}

func parseGas(ds *model.AggregatedDataset, sh *model.Sheet) {
	w := newSheetWalker(ds, gasRowLayout, sh.Rows)
	if groups, headerRow, ok := gasYearColumns(sh.Rows); ok {
		w.walkYearColumns(sh.Rows[headerRow+1:], groups)
	} else {
		year, _ := headerYear(sh.Rows, headerScanRows)
		w.walkNamed(sh.Rows, year)
	}
	noteUnknownYear(ds, w, sh.Name)
}

const gasHeaderScanRows = 5

// yearColumns one year block of a column-per-year sheet
type yearColumns struct {
	Year   int
	Cost   int
	Volume int
}

// gasYearColumns finds a header row carrying years in columns ≥1 and reads the
// cost/volume labels around each year
func gasYearColumns(rows [][]any) ([]yearColumns, int, bool) {
	for r := 0; r < gasHeaderScanRows && r < len(rows); r++ {
		if _, _, _, isMonth := findMonth(rows[r]); isMonth {
			continue
		}
		var groups []yearColumns
		claimed := map[int]bool{}
		for c := 1; c < len(rows[r]); c++ {
			y, ok := parser.YearValue(rows[r][c])
			if !ok {
				continue
			}
			g := yearColumns{Year: y, Cost: c, Volume: c + 1}
			if r+1 < len(rows) {
				labelGasColumns(rows[r+1], c, &g, claimed)
			}
			claimed[g.Cost], claimed[g.Volume] = true, true
			groups = append(groups, g)
		}
		if len(groups) > 0 {
			return groups, r, true
		}
	}
	return nil, 0, false
}

// gasLabelOffsets label search order around the year column
var gasLabelOffsets = []int{0, 1, -1, 2}

func labelGasColumns(labels []any, yearCol int, g *yearColumns, claimed map[int]bool) {
	costSet, volSet := false, false
	for _, off := range gasLabelOffsets {
		col := yearCol + off
		if claimed[col] {
			continue
		}
		s, ok := parser.Cell(labels, col).(string)
		if !ok {
			continue
		}
		text := parser.NormalizeText(s)
		switch {
		case !costSet && parser.ContainsAny(text, []string{"сум", "cost", "стоимость"}):
			g.Cost = col
			costSet = true
		case !volSet && parser.ContainsAny(text, []string{"м3", "м³", "volume", "объем"}):
			g.Volume = col
			volSet = true
		}
	}
}

// walkYearColumns one month row holds values for every year block
func (w *sheetWalker) walkYearColumns(rows [][]any, groups []yearColumns) {
	for _, row := range rows {
		month, _, label, ok := findMonthWithin(row, gasHeaderScanRows)
		if !ok {
			continue
		}
		for _, g := range groups {
			cost := parser.ParseOptionalNumber(parser.Cell(row, g.Cost))
			volume := parser.ParseOptionalNumber(parser.Cell(row, g.Volume))
			if cost == nil && volume == nil {
				continue
			}
			w.addValues(g.Year, month, label, map[string]*float64{
				model.FieldCostSum:  cost,
				model.FieldVolumeM3: volume,
			})
		}
	}
}

func findMonthWithin(row []any, cells int) (int, int, string, bool) {
	for i := 0; i < cells && i < len(row); i++ {
		s, ok := row[i].(string)
		if !ok {
			continue
		}
		if m, found := parser.MonthFromName(s); found {
			return m, i, strings.TrimSpace(s), true
		}
	}
	return 0, 0, "", false
}

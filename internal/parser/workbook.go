package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"energypassport/internal/model"
)

// ErrWorkbookLoad workbook could not be opened or read
var ErrWorkbookLoad = errors.New("workbook load failed")

// LoadWorkbook opens an xlsx file and converts it to the in-memory form
func LoadWorkbook(path string) (model.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.Workbook{}, fmt.Errorf("%w: %s: %v", ErrWorkbookLoad, path, err)
	}
	defer f.Close()
	return FromExcelize(f)
}

// FromExcelize converts an opened excelize file.
// Numeric-looking cells become float64, empty cells nil, the rest strings.
func FromExcelize(f *excelize.File) (model.Workbook, error) {
	wb := model.Workbook{}
	if f == nil {
		return wb, fmt.Errorf("%w: nil file", ErrWorkbookLoad)
	}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return model.Workbook{}, fmt.Errorf("%w: sheet %s: %v", ErrWorkbookLoad, name, err)
		}
		sheet := model.Sheet{Name: name, Rows: make([][]any, 0, len(rows))}
		for _, r := range rows {
			row := make([]any, len(r))
			for i, s := range r {
				row[i] = convertCell(s)
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func convertCell(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return s
}

// Preview header/sample rows of every sheet for classification and prompts
func Preview(wb model.Workbook, headerRows, sampleRows int) *model.RawContent {
	rc := &model.RawContent{}
	for _, sh := range wb.Sheets {
		p := model.SheetPreview{Name: sh.Name}
		for i, row := range sh.Rows {
			if i < headerRows {
				for _, c := range row {
					if s := strings.TrimSpace(CellString(c)); s != "" {
						p.Headers = append(p.Headers, s)
					}
				}
				continue
			}
			if len(p.SampleRows) >= sampleRows {
				break
			}
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = CellString(c)
			}
			p.SampleRows = append(p.SampleRows, cells)
		}
		rc.Sheets = append(rc.Sheets, p)
	}
	return rc
}

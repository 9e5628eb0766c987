package balance

import (
	"path/filepath"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// IsNodeTable header names both a metering node and an energy quantity
func IsNodeTable(t model.Table) bool {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return false
	}
	header := parser.NormalizeText(strings.Join(t.Headers, " "))
	return parser.ContainsAny(header, nodeKeywords) && parser.ContainsAny(header, energyKeywords)
}

// ParseNodeTable records from a Word or OCR table. The period comes from the
// header text, falling back to each row's own text.
func ParseNodeTable(t model.Table, dataType model.DataType) []model.NodeRecord {
	if len(t.Headers) == 0 || len(t.Rows) == 0 {
		return nil
	}
	cols := ResolveColumns(t.Headers, nil, false)
	if cols.Name < 0 {
		return nil
	}
	period := InferPeriod(parser.NormalizeText(strings.Join(t.Headers, " ")), "")

	var out []model.NodeRecord
	for _, row := range t.Rows {
		if parser.RowEmpty(row) {
			continue
		}
		name := strings.TrimSpace(parser.CellString(parser.Cell(row, cols.Name)))
		if name == "" {
			continue
		}
		rowPeriod := period
		if rowPeriod == "" {
			rowPeriod = InferPeriod(parser.RowText(row), "")
		}
		out = append(out, model.NodeRecord{
			NodeName:            name,
			Period:              periodOrUnknown(rowPeriod),
			ActiveEnergyKWh:     valueAt(row, cols.Active),
			ReactiveEnergyKVarh: valueAt(row, cols.Reactive),
			CostSum:             valueAt(row, cols.Cost),
			DataType:            dataType,
			DataJSON:            map[string]any{},
		})
	}
	return out
}

// parseOCRTables node tables of an OCR result; records without a period take
// the one implied by the file name
func parseOCRTables(res *model.OCRResult, filename string, dataType model.DataType) []model.NodeRecord {
	if res == nil || len(res.Tables) == 0 {
		return nil
	}
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	filePeriod := periodOrUnknown(InferPeriod(stem, ""))

	var out []model.NodeRecord
	for _, t := range res.Tables {
		if !IsNodeTable(t) {
			continue
		}
		for _, rec := range ParseNodeTable(t, dataType) {
			if rec.Period == model.PeriodUnknown {
				rec.Period = filePeriod
			}
			out = append(out, rec)
		}
	}
	return out
}

func valueAt(row []any, idx int) *float64 {
	if idx < 0 {
		return nil
	}
	return parser.ParseOptionalNumber(parser.Cell(row, idx))
}

package balance

import (
	"log"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// Sheet kinds recorded in data_json.sheet_type
const (
	SheetTypeDetail  = "detail_by_consumers"
	SheetTypeSummary = "summary_by_year"
	SheetTypeUnknown = "unknown"
)

var (
	detailSheetKeywords  = []string{"потребител", "детальн"}
	summarySheetKeywords = []string{"общее", "общий", "год", "годов", "итого", "итог"}
	totalsRowKeywords    = []string{"итого", "итог", "всего", "сумма"}
)

func sheetType(name string) string {
	switch {
	case parser.ContainsAny(name, detailSheetKeywords):
		return SheetTypeDetail
	case parser.ContainsAny(name, summarySheetKeywords):
		return SheetTypeSummary
	}
	return SheetTypeUnknown
}

// parseNodeSheet node records of one worksheet. Totals rows are skipped
// except on yearly summary sheets.
func parseNodeSheet(sh model.Sheet, dataType model.DataType, filename string) []model.NodeRecord {
	if len(sh.Rows) == 0 {
		return nil
	}
	name := parser.NormalizeText(sh.Name)
	kind := sheetType(name)
	summary := parser.ContainsAny(name, summarySheetKeywords)
	balanceSheet := strings.Contains(name, "баланс")

	headerIdx, ok := FindHeaderRow(sh.Rows)
	if !ok {
		log.Printf("[balance] no header row on sheet %q", sh.Name)
		return nil
	}
	headers := make([]string, len(sh.Rows[headerIdx]))
	for i, c := range sh.Rows[headerIdx] {
		headers[i] = parser.CellString(c)
	}
	data := sh.Rows[headerIdx+1:]

	cols := ResolveColumns(headers, data, balanceSheet)
	if cols.Name < 0 {
		if !balanceSheet {
			log.Printf("[balance] no node name column on sheet %q", sh.Name)
			return nil
		}
		cols.Name = 0
	}

	period := periodOrUnknown(InferPeriod(sh.Name, filename))

	var out []model.NodeRecord
	for i, row := range data {
		if parser.RowEmpty(row) {
			continue
		}
		node := strings.TrimSpace(parser.CellString(parser.Cell(row, cols.Name)))
		if node == "" {
			continue
		}
		if !summary && parser.ContainsAny(parser.NormalizeText(node), totalsRowKeywords) {
			continue
		}
		out = append(out, model.NodeRecord{
			NodeName:            node,
			Period:              period,
			ActiveEnergyKWh:     valueAt(row, cols.Active),
			ReactiveEnergyKVarh: valueAt(row, cols.Reactive),
			CostSum:             valueAt(row, cols.Cost),
			DataType:            dataType,
			DataJSON: map[string]any{
				"source_sheet": sh.Name,
				"sheet_type":   kind,
				"row_number":   headerIdx + i + 2,
			},
		})
	}
	return out
}

// parseWorkbook every node-bearing sheet of a workbook
func parseWorkbook(wb model.Workbook, dataType model.DataType, filename string) []model.NodeRecord {
	detect := isNodeSheet
	if dataType == model.DataTypeRealization {
		detect = isRealizationSheet
	}
	var out []model.NodeRecord
	for _, sh := range wb.Sheets {
		if !detect(sh) {
			continue
		}
		out = append(out, parseNodeSheet(sh, dataType, filename)...)
	}
	return out
}

package balance

import (
	"path/filepath"
	"strings"
	"unicode"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

var balanceFileKeywords = []string{
	"акт баланс", "акт реализации", "баланс", "коммерческий учет", "узел учета",
	"трансформаторная подстанция", "тп", "подстанция", "счетчик", "акт на поставку",
	"акт поставки", "реализация нэс", "реализация", "нэс руз",
}

var balanceExtensions = map[string]bool{".pdf": true, ".xlsx": true, ".xls": true, ".docx": true, ".doc": true}

var balanceContentPhrases = []string{"акт баланс", "коммерческий учет", "реализация нэс", "трансформаторная подстанция"}

// Keyword classes shared by the detectors
var (
	nodeKeywords        = []string{"узел", "тп", "подстанция", "счетчик"}
	energyKeywords      = []string{"активная", "реактивная", "квт", "квар"}
	tableHeaderKeywords = []string{"узел", "тп", "подстанция", "счетчик", "активная", "реактивная"}
	nodeSheetKeywords   = []string{"узел", "тп", "подстанция", "счетчик", "баланс", "акт"}
)

// IsBalanceFile reports whether an upload looks like a balance act, by
// filename first and then by already-parsed content
func IsBalanceFile(filename string, raw *model.RawContent) bool {
	if !balanceExtensions[strings.ToLower(filepath.Ext(filename))] {
		return false
	}
	name := parser.NormalizeText(filepath.Base(filename))
	if parser.ContainsAny(name, balanceFileKeywords) {
		return true
	}
	if raw == nil {
		return false
	}
	return hasNodeContent(raw) || hasBalancePhrases(raw)
}

// DataTypeFromFilename consumption unless the name says otherwise
func DataTypeFromFilename(filename string) model.DataType {
	name := parser.NormalizeText(filepath.Base(filename))
	switch {
	case strings.Contains(name, "реализация"):
		return model.DataTypeRealization
	case strings.Contains(name, "производство"), strings.Contains(name, "production"):
		return model.DataTypeProduction
	}
	return model.DataTypeConsumption
}

func hasNodeContent(raw *model.RawContent) bool {
	for _, t := range raw.Tables {
		header := parser.NormalizeText(strings.Join(t.Headers, " "))
		if !parser.ContainsAny(header, tableHeaderKeywords) {
			continue
		}
		for i, row := range t.Rows {
			if i >= 5 {
				break
			}
			if hasPositiveNumber(row) {
				return true
			}
		}
	}
	for _, sh := range raw.Sheets {
		name := parser.NormalizeText(sh.Name)
		if parser.ContainsAny(name, []string{"узел", "тп", "баланс", "акт"}) && len(sh.SampleRows) > 0 {
			return true
		}
	}
	return false
}

func hasBalancePhrases(raw *model.RawContent) bool {
	var b strings.Builder
	b.WriteString(raw.Text)
	for _, t := range raw.Tables {
		for _, row := range t.Rows {
			b.WriteString(" ")
			b.WriteString(parser.RowText(row))
		}
	}
	for _, sh := range raw.Sheets {
		for _, row := range sh.SampleRows {
			b.WriteString(" ")
			b.WriteString(strings.Join(row, " "))
		}
	}
	return parser.ContainsAny(parser.NormalizeText(b.String()), balanceContentPhrases)
}

func hasPositiveNumber(row []any) bool {
	for _, c := range row {
		if parser.IsNumber(c) {
			if v, _ := parser.ParseNumber(c); v > 0 {
				return true
			}
		}
	}
	return false
}

// hasToken whole-word match for single-letter markers such as "p" and "q"
func hasToken(text string, tokens []string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, tok := range tokens {
			if w == tok {
				return true
			}
		}
	}
	return false
}

const (
	nodeSheetScanRows        = 5
	realizationSheetScanRows = 20
)

// isNodeSheet sheet name or leading rows mention metering nodes
func isNodeSheet(sh model.Sheet) bool {
	if parser.ContainsAny(parser.NormalizeText(sh.Name), nodeSheetKeywords) {
		return true
	}
	for i, row := range sh.Rows {
		if i >= nodeSheetScanRows {
			break
		}
		if parser.ContainsAny(parser.NormalizeText(parser.RowText(row)), nodeSheetKeywords) {
			return true
		}
	}
	return false
}

var (
	realizationSheetKeywords = []string{
		"потребител", "детальн", "общее", "общий", "год", "итог",
		"узел", "тп", "подстанция", "счетчик", "баланс",
		"активная", "реактивная", "энергия", "квт", "квар",
	}
	realizationNodeKeywords   = []string{"узел", "тп", "подстанция", "счетчик", "потребител", "наименование", "название"}
	realizationEnergyKeywords = []string{"активная", "реактивная", "квт", "квар", "энергия", "стоимость", "сумма"}
)

// isRealizationSheet broader detector for realization acts: detail sheets by
// consumer and yearly summaries both qualify
func isRealizationSheet(sh model.Sheet) bool {
	if parser.ContainsAny(parser.NormalizeText(sh.Name), realizationSheetKeywords) {
		return true
	}
	var hasNode, hasEnergy, hasNumbers bool
	for i, row := range sh.Rows {
		if i >= realizationSheetScanRows {
			break
		}
		text := parser.NormalizeText(parser.RowText(row))
		if parser.ContainsAny(text, realizationNodeKeywords) {
			hasNode = true
		}
		if parser.ContainsAny(text, realizationEnergyKeywords) || hasToken(text, []string{"p", "q"}) {
			hasEnergy = true
		}
		if hasPositiveNumber(row) {
			hasNumbers = true
		}
	}
	return (hasNode && hasEnergy) || (hasNumbers && (hasNode || hasEnergy))
}

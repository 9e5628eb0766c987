package balance

import "energypassport/internal/parser"

const (
	headerScanRows      = 15
	densityScanRows     = 10
	minHeaderCells      = 3
	numericLookahead    = 3
	structureSampleRows = 5
)

var (
	headerNodeKeywords   = []string{"узел", "тп", "подстанция", "наименование", "название", "счетчик"}
	headerEnergyKeywords = []string{"активная", "реактивная", "квт", "квар", "энергия"}
	energyTokens         = []string{"p", "q"}
)

// FindHeaderRow index of the table header row, keyword layer first then density
func FindHeaderRow(rows [][]any) (int, bool) {
	if idx, ok := headerByKeywords(rows); ok {
		return idx, true
	}
	return headerByDensity(rows)
}

// headerByKeywords a row naming both nodes and energy followed by a non-empty
// row, or a row naming nodes followed by numbers within a few rows
func headerByKeywords(rows [][]any) (int, bool) {
	for idx, row := range rows {
		if idx >= headerScanRows {
			break
		}
		if parser.RowEmpty(row) {
			continue
		}
		text := parser.NormalizeText(parser.RowText(row))
		hasNode := parser.ContainsAny(text, headerNodeKeywords)
		hasEnergy := parser.ContainsAny(text, headerEnergyKeywords) || hasToken(text, energyTokens)

		if hasNode && hasEnergy && idx+1 < len(rows) && !parser.RowEmpty(rows[idx+1]) {
			return idx, true
		}
		if hasNode && !hasEnergy {
			for next := idx + 1; next <= idx+numericLookahead && next < len(rows); next++ {
				if rowHasNumber(rows[next]) {
					return idx, true
				}
			}
		}
	}
	return 0, false
}

// headerByDensity the row with the most non-empty cells, at least three
func headerByDensity(rows [][]any) (int, bool) {
	best, bestIdx := 0, -1
	for idx, row := range rows {
		if idx >= densityScanRows {
			break
		}
		if n := parser.NonEmptyCount(row); n > best && n >= minHeaderCells {
			best, bestIdx = n, idx
		}
	}
	return bestIdx, bestIdx >= 0
}

func rowHasNumber(row []any) bool {
	for _, c := range row {
		if parser.IsNumber(c) {
			return true
		}
	}
	return false
}

package balance

import (
	"sort"
	"strings"

	"energypassport/internal/parser"
)

// Columns role assignment of a node table, -1 when absent
type Columns struct {
	Name     int
	Active   int
	Reactive int
	Cost     int
}

func noColumns() Columns {
	return Columns{Name: -1, Active: -1, Reactive: -1, Cost: -1}
}

func (c Columns) hasValues() bool {
	return c.Active >= 0 || c.Reactive >= 0 || c.Cost >= 0
}

func (c Columns) claimed(idx int) bool {
	return idx == c.Name || idx == c.Active || idx == c.Reactive || idx == c.Cost
}

const structureColumns = 10

var (
	reactiveKeywords = []string{"реактивная", "квар", "reactive"}
	reactiveTokens   = []string{"q", "var"}
	activeKeywords   = []string{"активная", "квт", "active"}
	activeTokens     = []string{"p", "w"}
	activeExclude    = []string{"реактив", "квар"}
	costKeywords     = []string{"стоимость", "сум", "cost", "цена"}
	nameKeywords     = []string{"узел", "тп", "подстанция", "наименование", "название"}
	nameBalanceExtra = []string{"потребител", "объект"}
	firstNamePartial = []string{"наимен", "назван", "узел", "потребит", "объект"}
)

// ResolveColumns keyword layer, then the first text column as name, then the
// structural layer for balance sheets
func ResolveColumns(headers []string, sample [][]any, balanceSheet bool) Columns {
	cols := columnsByKeywords(headers, balanceSheet)
	if cols.Name < 0 {
		cols.Name = firstTextColumn(headers, cols)
	}
	if balanceSheet && (cols.Name < 0 || !cols.hasValues()) {
		cols = columnsByStructure(sample, cols)
	}
	return cols
}

// columnsByKeywords each header cell takes at most one role, checked in the
// order reactive, active, cost, name
func columnsByKeywords(headers []string, balanceSheet bool) Columns {
	cols := noColumns()
	names := nameKeywords
	if balanceSheet {
		names = append(append([]string{}, nameKeywords...), nameBalanceExtra...)
	}

	nonEmpty := 0
	for idx, h := range headers {
		text := parser.NormalizeText(h)
		if text == "" {
			continue
		}
		nonEmpty++
		switch {
		case cols.Reactive < 0 && (parser.ContainsAny(text, reactiveKeywords) || hasToken(text, reactiveTokens)):
			cols.Reactive = idx
		case cols.Active < 0 && !parser.ContainsAny(text, activeExclude) &&
			(parser.ContainsAny(text, activeKeywords) || hasToken(text, activeTokens)):
			cols.Active = idx
		case cols.Cost < 0 && parser.ContainsAny(text, costKeywords):
			cols.Cost = idx
		case cols.Name < 0 && parser.ContainsAny(text, names):
			cols.Name = idx
		case cols.Name < 0 && idx == 0 && parser.ContainsAny(text, firstNamePartial):
			cols.Name = idx
		}
	}
	if nonEmpty < 2 && cols.Name < 0 {
		cols.Name = 0
	}
	return cols
}

// firstTextColumn first unclaimed header that is not a number
func firstTextColumn(headers []string, cols Columns) int {
	for idx, h := range headers {
		if cols.claimed(idx) || strings.TrimSpace(h) == "" || parser.IsNumber(h) {
			continue
		}
		return idx
	}
	return -1
}

// columnsByStructure infers roles from sample data: the first text-only column
// names the node, numeric columns ordered by fill take active, reactive, cost
func columnsByStructure(sample [][]any, cols Columns) Columns {
	if len(sample) > structureSampleRows {
		sample = sample[:structureSampleRows]
	}
	width := 0
	for _, row := range sample {
		if len(row) > width {
			width = len(row)
		}
	}
	if width > structureColumns {
		width = structureColumns
	}

	type numericColumn struct {
		idx   int
		count int
	}
	var numeric []numericColumn
	for idx := 0; idx < width; idx++ {
		texts, numbers := 0, 0
		for _, row := range sample {
			cell := parser.Cell(row, idx)
			if parser.CellString(cell) == "" {
				continue
			}
			if parser.IsNumber(cell) {
				if v, _ := parser.ParseNumber(cell); v > 0 {
					numbers++
				}
				continue
			}
			texts++
		}
		if cols.Name < 0 && texts > 0 && numbers == 0 {
			cols.Name = idx
			continue
		}
		if numbers >= 2 && !cols.claimed(idx) {
			numeric = append(numeric, numericColumn{idx: idx, count: numbers})
		}
	}

	sort.SliceStable(numeric, func(i, j int) bool { return numeric[i].count > numeric[j].count })
	for _, nc := range numeric {
		switch {
		case cols.Active < 0:
			cols.Active = nc.idx
		case cols.Reactive < 0:
			cols.Reactive = nc.idx
		case cols.Cost < 0:
			cols.Cost = nc.idx
		}
	}
	return cols
}

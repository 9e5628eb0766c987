package readiness

import (
	"fmt"

	"energypassport/internal/model"
)

// SheetData what the passport sheets are validated against
type SheetData struct {
	Resources map[string]model.ResourceQuarters
	Nodes     []model.NodeRecord
}

// SheetSpec one passport sheet
type SheetSpec struct {
	Name        string
	Description string
	Required    bool
}

// SheetRequirements field-level checks per passport sheet
type SheetRequirements interface {
	Sheets() []SheetSpec
	Validate(sheet string, data SheetData) []string
}

// SheetValidation outcome for one sheet
type SheetValidation struct {
	Valid       bool     `json:"valid"`
	Required    bool     `json:"required"`
	Errors      []string `json:"errors"`
	Description string   `json:"description"`
}

// FieldRequirement a quarter-total field that must be filled in enough quarters
type FieldRequirement struct {
	Resource    string
	Field       string
	MinQuarters int
}

// Passport sheet names
const (
	SheetStructure = "Struktura pr2"
	SheetNodes     = "01_Узлы учета"
)

// PassportSheets default requirements of the energy passport workbook
type PassportSheets struct {
	Fields   []FieldRequirement
	MinNodes int
}

// DefaultPassportSheets electricity and gas totals over four quarters plus
// at least one metering node
func DefaultPassportSheets() PassportSheets {
	return PassportSheets{
		Fields: []FieldRequirement{
			{Resource: model.ResourceElectricity, Field: model.FieldActiveKWh, MinQuarters: 4},
			{Resource: model.ResourceElectricity, Field: model.FieldReactiveKVarh, MinQuarters: 4},
			{Resource: model.ResourceGas, Field: model.FieldVolumeM3, MinQuarters: 4},
		},
		MinNodes: 1,
	}
}

func (p PassportSheets) Sheets() []SheetSpec {
	return []SheetSpec{
		{Name: SheetStructure, Description: "Structure of energy consumption by quarter", Required: true},
		{Name: SheetNodes, Description: "Metering nodes", Required: true},
	}
}

func (p PassportSheets) Validate(sheet string, data SheetData) []string {
	var errs []string
	switch sheet {
	case SheetStructure:
		for _, f := range p.Fields {
			if n := quartersWithField(data.Resources[f.Resource], f.Field); n < f.MinQuarters {
				errs = append(errs, fmt.Sprintf("%s.%s: %d of %d quarters", f.Resource, f.Field, n, f.MinQuarters))
			}
		}
	case SheetNodes:
		if len(data.Nodes) < p.MinNodes {
			errs = append(errs, fmt.Sprintf("metering nodes: %d of %d", len(data.Nodes), p.MinNodes))
		}
	}
	return errs
}

func quartersWithField(quarters model.ResourceQuarters, field string) int {
	n := 0
	for _, q := range quarters {
		if q == nil {
			continue
		}
		if _, ok := q.QuarterTotals[field]; ok {
			n++
		}
	}
	return n
}

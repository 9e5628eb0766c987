package balance

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"energypassport/internal/metrics"
	"energypassport/internal/model"
)

// implausibleEnergy values above this are kept but flagged
const implausibleEnergy = 1e8

// WarningsKey data_json key holding validation warnings
const WarningsKey = "validation_warnings"

// Validate drops records without a usable node name, nulls negative values
// and attaches warnings to the survivors
func Validate(records []model.NodeRecord, sourceFile string) []model.NodeRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]model.NodeRecord, 0, len(records))
	rejected, warned := 0, 0
	for _, rec := range records {
		name := strings.TrimSpace(rec.NodeName)
		if utf8.RuneCountInString(name) < 2 {
			rejected++
			continue
		}
		rec.NodeName = name
		if rec.Period == "" {
			rec.Period = model.PeriodUnknown
		}
		if rec.DataType == "" {
			rec.DataType = model.DataTypeConsumption
		}

		var warnings []string
		if rec.Period == model.PeriodUnknown {
			warnings = append(warnings, "period not determined, using 'unknown'")
		}
		rec.ActiveEnergyKWh = dropNegative(rec.ActiveEnergyKWh, "active energy", &warnings)
		rec.ReactiveEnergyKVarh = dropNegative(rec.ReactiveEnergyKVarh, "reactive energy", &warnings)
		rec.CostSum = dropNegative(rec.CostSum, "cost", &warnings)
		if rec.ActiveEnergyKWh != nil && *rec.ActiveEnergyKWh > implausibleEnergy {
			warnings = append(warnings, fmt.Sprintf("suspiciously large active energy: %v", *rec.ActiveEnergyKWh))
		}
		if rec.ReactiveEnergyKVarh != nil && *rec.ReactiveEnergyKVarh > implausibleEnergy {
			warnings = append(warnings, fmt.Sprintf("suspiciously large reactive energy: %v", *rec.ReactiveEnergyKVarh))
		}
		if rec.PopulatedCount() == 0 {
			warnings = append(warnings, "all consumption values are missing")
		}

		if len(warnings) > 0 {
			data := make(map[string]any, len(rec.DataJSON)+1)
			for k, v := range rec.DataJSON {
				data[k] = v
			}
			data[WarningsKey] = warnings
			rec.DataJSON = data
			warned += len(warnings)
		} else if rec.DataJSON == nil {
			rec.DataJSON = map[string]any{}
		}
		out = append(out, rec)
	}

	base := filepath.Base(sourceFile)
	if rejected > 0 {
		log.Printf("[balance] %s: %d records rejected for an invalid node name", base, rejected)
	}
	if warned > 0 {
		log.Printf("[balance] %s: %d validation warnings", base, warned)
		metrics.AddNodeWarnings(warned)
	}
	return out
}

func dropNegative(v *float64, label string, warnings *[]string) *float64 {
	if v == nil || *v >= 0 {
		return v
	}
	*warnings = append(*warnings, fmt.Sprintf("negative %s: %v", label, *v))
	return nil
}

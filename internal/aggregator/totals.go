package aggregator

import (
	"energypassport/internal/model"
	"energypassport/internal/units"
)

// Month fields holding demand (kW / kvar) rather than energy
var (
	activePowerFields   = []string{"active_power", "power_kw", "active_power_kw"}
	reactivePowerFields = []string{"reactive_power", "reactive_power_kvar"}
)

// ComputeQuarterTotals recomputes quarter_totals of every quarter as the
// field-wise sum over its months, overwriting what was there. Quarters
// without months keep their totals. Electricity quarters whose energy sums
// to zero fall back to average monthly demand.
func ComputeQuarterTotals(resources map[string]model.ResourceQuarters) {
	for name, rq := range resources {
		for _, rec := range rq {
			if rec == nil {
				continue
			}
			if len(rec.Months) == 0 {
				if rec.QuarterTotals == nil {
					rec.QuarterTotals = map[string]float64{}
				}
				continue
			}
			totals := sumMonths(rec.Months)
			if name == model.ResourceElectricity {
				deriveFromPower(totals, rec.Months, model.FieldActiveKWh, activePowerFields)
				deriveFromPower(totals, rec.Months, model.FieldReactiveKVarh, reactivePowerFields)
			}
			rec.QuarterTotals = totals
		}
	}
}

func sumMonths(months []model.MonthEntry) map[string]float64 {
	totals := map[string]float64{}
	for _, m := range months {
		for field, v := range m.Values {
			if v == nil {
				continue
			}
			totals[field] += *v
		}
	}
	return totals
}

// deriveFromPower energy = avg monthly demand × hours per month × months per quarter,
// averaged over all months of the quarter
func deriveFromPower(totals map[string]float64, months []model.MonthEntry, field string, powerFields []string) {
	if totals[field] != 0 {
		return
	}
	sum := 0.0
	found := false
	for _, m := range months {
		for _, pf := range powerFields {
			if v := m.Values[pf]; v != nil && *v > 0 {
				sum += *v
				found = true
				break
			}
		}
	}
	if !found || sum <= 0 {
		return
	}
	avg := sum / float64(len(months))
	totals[field] = avg * units.HoursPerMonth * units.MonthsPerQuarter
}

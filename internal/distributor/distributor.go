package distributor

import (
	"log"
	"math"
	"sort"

	"energypassport/internal/aggregator"
	"energypassport/internal/model"
	"energypassport/internal/units"
)

// StandardShares typical category split of an industrial site's electricity
var StandardShares = map[string]float64{
	aggregator.UsageTechnological: 0.50,
	aggregator.UsageProduction:    0.30,
	aggregator.UsageOwnNeeds:      0.15,
	aggregator.UsageHousehold:     0.05,
}

// PrincipalField consumption field by_usage is measured against
func PrincipalField(resource string) string {
	switch resource {
	case model.ResourceGas, model.ResourceWater:
		return model.FieldVolumeM3
	case "production":
		return model.FieldProduction
	}
	return model.FieldActiveKWh
}

// Distribute returns a copy of ds where quarters of resource carry a
// by_usage breakdown derived from yearly category totals.
//
// When the resource has no quarters at all, four equal quarters per year are
// synthesized. Otherwise every quarter without by_usage receives the year's
// categories scaled by its share of the yearly total. Existing by_usage is
// never touched, so the step is idempotent.
func Distribute(ds *model.AggregatedDataset, yearly map[int]map[string]float64, resource string) *model.AggregatedDataset {
	out := ds.Clone()
	if out == nil {
		out = model.NewAggregatedDataset("")
	}
	if len(yearly) == 0 {
		return out
	}
	field := PrincipalField(resource)

	if len(out.Resources[resource]) == 0 {
		synthesize(out, yearly, resource, field)
		return out
	}

	distributed := 0
	for _, rec := range out.Resources[resource] {
		if rec == nil || len(rec.ByUsage) > 0 {
			continue
		}
		cats, ok := yearly[rec.Year]
		if !ok {
			continue
		}
		total := sum(cats)
		if total == 0 {
			continue
		}
		quarterTotal := rec.QuarterTotals[field]
		if quarterTotal <= 0 {
			continue
		}
		rec.ByUsage = make(map[string]float64, len(cats))
		for c, v := range cats {
			rec.ByUsage[c] = quarterTotal * v / total
		}
		distributed++
	}
	log.Printf("[distributor] %s: by_usage distributed to %d quarters", resource, distributed)
	return out
}

func synthesize(ds *model.AggregatedDataset, yearly map[int]map[string]float64, resource, field string) {
	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}
	sort.Ints(years)

	created := 0
	for _, year := range years {
		cats := yearly[year]
		total := sum(cats)
		if total <= 0 {
			continue
		}
		for q := 1; q <= 4; q++ {
			rec := ds.Quarter(resource, year, q, units.QuarterKey(year, q))
			rec.QuarterTotals = map[string]float64{field: total / 4}
			rec.ByUsage = make(map[string]float64, len(cats))
			for c, v := range cats {
				rec.ByUsage[c] = v / 4
			}
			created++
		}
	}
	log.Printf("[distributor] %s: no quarterly data, synthesized %d quarters from yearly categories", resource, created)
}

// DistributeStandard fills by_usage of quarters lacking it with StandardShares
// of their principal total, rounded to two decimals
func DistributeStandard(ds *model.AggregatedDataset, resource string) *model.AggregatedDataset {
	out := ds.Clone()
	if out == nil {
		return model.NewAggregatedDataset("")
	}
	field := PrincipalField(resource)
	for _, rec := range out.Resources[resource] {
		if rec == nil || len(rec.ByUsage) > 0 {
			continue
		}
		total := rec.QuarterTotals[field]
		if total <= 0 {
			continue
		}
		rec.ByUsage = make(map[string]float64, len(StandardShares))
		for c, share := range StandardShares {
			rec.ByUsage[c] = round2(total * share)
		}
	}
	return out
}

func sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

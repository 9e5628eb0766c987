package model

import (
	"sort"
	"time"
)

// Principal quarter-total fields
const (
	FieldActiveKWh     = "active_kwh"
	FieldReactiveKVarh = "reactive_kvarh"
	FieldCostSum       = "cost_sum"
	FieldVolumeM3      = "volume_m3"
	FieldProduction    = "production_units"
)

// MonthEntry values recorded for one month label
type MonthEntry struct {
	Month  string              `json:"month"`
	Values map[string]*float64 `json:"values"`
}

// QuarterRecord one quarter of one resource
type QuarterRecord struct {
	Year          int                `json:"year"`
	Quarter       int                `json:"quarter"`
	Months        []MonthEntry       `json:"months"`
	QuarterTotals map[string]float64 `json:"quarter_totals"`
	ByUsage       map[string]float64 `json:"by_usage,omitempty"`
}

// ResourceQuarters quarter_key -> record
type ResourceQuarters map[string]*QuarterRecord

// AggregatedDataset per-file or per-enterprise working structure
type AggregatedDataset struct {
	Source        string                      `json:"source"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Resources     map[string]ResourceQuarters `json:"resources"`
	MissingSheets []string                    `json:"missing_sheets"`
	CheckedSheets []string                    `json:"checked_sheets,omitempty"`
	Notes         []string                    `json:"notes,omitempty"`
}

// NewAggregatedDataset empty dataset stamped with the current UTC time
func NewAggregatedDataset(source string) *AggregatedDataset {
	return &AggregatedDataset{
		Source:        source,
		GeneratedAt:   time.Now().UTC(),
		Resources:     map[string]ResourceQuarters{},
		MissingSheets: []string{},
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Quarter returns the record for key, creating it when absent
func (d *AggregatedDataset) Quarter(resource string, year, quarter int, key string) *QuarterRecord {
	if d.Resources == nil {
		d.Resources = map[string]ResourceQuarters{}
	}
	rq, ok := d.Resources[resource]
	if !ok {
		rq = ResourceQuarters{}
		d.Resources[resource] = rq
	}
	rec, ok := rq[key]
	if !ok {
		rec = &QuarterRecord{
			Year:          year,
			Quarter:       quarter,
			Months:        []MonthEntry{},
			QuarterTotals: map[string]float64{},
		}
		rq[key] = rec
	}
	return rec
}

// SortedQuarterKeys keys of a resource in lexical (chronological) order
func SortedQuarterKeys(rq ResourceQuarters) []string {
	keys := make([]string, 0, len(rq))
	for k := range rq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedResourceNames resource names in lexical order
func (d *AggregatedDataset) SortedResourceNames() []string {
	keys := make([]string, 0, len(d.Resources))
	for k := range d.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep copy of the dataset
func (d *AggregatedDataset) Clone() *AggregatedDataset {
	if d == nil {
		return nil
	}
	out := &AggregatedDataset{
		Source:        d.Source,
		GeneratedAt:   d.GeneratedAt,
		Resources:     make(map[string]ResourceQuarters, len(d.Resources)),
		MissingSheets: append([]string{}, d.MissingSheets...),
	}
	if d.Notes != nil {
		out.Notes = append([]string{}, d.Notes...)
	}
	for name, rq := range d.Resources {
		cp := make(ResourceQuarters, len(rq))
		for k, rec := range rq {
			cp[k] = rec.Clone()
		}
		out.Resources[name] = cp
	}
	return out
}

// Clone deep copy of the record
func (q *QuarterRecord) Clone() *QuarterRecord {
	if q == nil {
		return nil
	}
	out := &QuarterRecord{
		Year:          q.Year,
		Quarter:       q.Quarter,
		Months:        make([]MonthEntry, 0, len(q.Months)),
		QuarterTotals: copyFloatMap(q.QuarterTotals),
	}
	if out.QuarterTotals == nil {
		out.QuarterTotals = map[string]float64{}
	}
	for _, m := range q.Months {
		vals := make(map[string]*float64, len(m.Values))
		for k, v := range m.Values {
			if v == nil {
				vals[k] = nil
				continue
			}
			vals[k] = Float(*v)
		}
		out.Months = append(out.Months, MonthEntry{Month: m.Month, Values: vals})
	}
	if q.ByUsage != nil {
		out.ByUsage = copyFloatMap(q.ByUsage)
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

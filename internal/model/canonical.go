package model

import (
	"fmt"
	"sort"
	"strings"
)

// Consumable resource kinds allowed in ResourceEntry.Resource
const (
	ResourceElectricity = "electricity"
	ResourceHeat        = "heat"
	ResourceGas         = "gas"
	ResourceWater       = "water"
	ResourceFuel        = "fuel"
	ResourceCoal        = "coal"
)

// ConsumableResources ordered list of consumable kinds
var ConsumableResources = []string{
	ResourceElectricity, ResourceHeat, ResourceGas, ResourceWater, ResourceFuel, ResourceCoal,
}

// IsConsumable reports whether kind is a consumable resource
func IsConsumable(kind string) bool {
	for _, r := range ConsumableResources {
		if r == kind {
			return true
		}
	}
	return false
}

// TimeSeries monthly/quarterly/annual values of one resource.
// Monthly keys are "01".."12", quarterly keys "Q1".."Q4".
type TimeSeries struct {
	Monthly   map[string]float64 `json:"monthly,omitempty" jsonschema_description:"Month number 01..12 to value"`
	Quarterly map[string]float64 `json:"quarterly,omitempty" jsonschema_description:"Quarter Q1..Q4 to value"`
	Annual    *float64           `json:"annual,omitempty"`
	Unit      string             `json:"unit,omitempty"`
}

// IsEmpty true when no values are present
func (ts TimeSeries) IsEmpty() bool {
	return len(ts.Monthly) == 0 && len(ts.Quarterly) == 0 && ts.Annual == nil
}

// ResourceEntry consumption series of one resource
type ResourceEntry struct {
	Resource string         `json:"resource" jsonschema:"enum=electricity,enum=heat,enum=gas,enum=water,enum=fuel,enum=coal"`
	Category string         `json:"category,omitempty"`
	Name     string         `json:"name,omitempty"`
	Series   TimeSeries     `json:"series"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EquipmentItem power-consuming equipment
type EquipmentItem struct {
	Name           string         `json:"name"`
	Type           string         `json:"type,omitempty"`
	Location       string         `json:"location,omitempty"`
	NominalPowerKW *float64       `json:"nominal_power_kw,omitempty"`
	Quantity       *float64       `json:"quantity,omitempty"`
	HoursPerYear   *float64       `json:"hours_per_year,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// NodeItem metering node descriptor
type NodeItem struct {
	NodeID       string         `json:"node_id,omitempty"`
	Location     string         `json:"location,omitempty"`
	Resource     string         `json:"resource,omitempty"`
	MeterType    string         `json:"meter_type,omitempty"`
	SerialNumber string         `json:"serial_number,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// EnvelopeItem building envelope element
type EnvelopeItem struct {
	Element  string         `json:"element,omitempty"`
	Material string         `json:"material,omitempty"`
	AreaM2   *float64       `json:"area_m2,omitempty"`
	UValue   *float64       `json:"u_value_w_m2k,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// ProvenanceEntry links a canonical field back to its source cells
type ProvenanceEntry struct {
	Sheet       string   `json:"sheet"`
	HeaderCells []string `json:"header_cells,omitempty"`
	DataCells   []string `json:"data_cells,omitempty"`
	Confidence  float64  `json:"confidence"`
	Notes       string   `json:"notes,omitempty"`
}

// CanonicalSourceData semantically extracted content of a sheet or file
type CanonicalSourceData struct {
	Resources  []ResourceEntry            `json:"resources"`
	Equipment  []EquipmentItem            `json:"equipment"`
	Nodes      []NodeItem                 `json:"nodes"`
	Envelope   []EnvelopeItem             `json:"envelope"`
	Provenance map[string]ProvenanceEntry `json:"provenance"`
}

// NewCanonicalSourceData returns an empty value with non-nil collections
func NewCanonicalSourceData() CanonicalSourceData {
	return CanonicalSourceData{
		Resources:  []ResourceEntry{},
		Equipment:  []EquipmentItem{},
		Nodes:      []NodeItem{},
		Envelope:   []EnvelopeItem{},
		Provenance: map[string]ProvenanceEntry{},
	}
}

// HasAnySection true when at least one list is non-empty
func (c CanonicalSourceData) HasAnySection() bool {
	return len(c.Resources) > 0 || len(c.Equipment) > 0 || len(c.Nodes) > 0 || len(c.Envelope) > 0
}

// Sanitize drops entries that do not satisfy the canonical schema and
// returns the cleaned copy with a list of issues.
func (c CanonicalSourceData) Sanitize() (CanonicalSourceData, []string) {
	out := NewCanonicalSourceData()
	var issues []string

	for i, r := range c.Resources {
		kind := strings.ToLower(strings.TrimSpace(r.Resource))
		if !IsConsumable(kind) {
			issues = append(issues, fmt.Sprintf("resources[%d]: unknown resource %q", i, r.Resource))
			continue
		}
		r.Resource = kind
		if len(r.Series.Monthly) > 0 {
			monthly := make(map[string]float64, len(r.Series.Monthly))
			for k, v := range r.Series.Monthly {
				key, ok := NormalizeMonthKey(k)
				if !ok {
					issues = append(issues, fmt.Sprintf("resources[%d]: bad month key %q", i, k))
					continue
				}
				monthly[key] = v
			}
			r.Series.Monthly = monthly
		}
		if len(r.Series.Quarterly) > 0 {
			quarterly := make(map[string]float64, len(r.Series.Quarterly))
			for k, v := range r.Series.Quarterly {
				key := strings.ToUpper(strings.TrimSpace(k))
				if key != "Q1" && key != "Q2" && key != "Q3" && key != "Q4" {
					issues = append(issues, fmt.Sprintf("resources[%d]: bad quarter key %q", i, k))
					continue
				}
				quarterly[key] = v
			}
			r.Series.Quarterly = quarterly
		}
		out.Resources = append(out.Resources, r)
	}
	for i, e := range c.Equipment {
		if strings.TrimSpace(e.Name) == "" {
			issues = append(issues, fmt.Sprintf("equipment[%d]: empty name", i))
			continue
		}
		out.Equipment = append(out.Equipment, e)
	}
	for i, n := range c.Nodes {
		if strings.TrimSpace(n.NodeID) == "" && strings.TrimSpace(n.Location) == "" {
			issues = append(issues, fmt.Sprintf("nodes[%d]: neither node_id nor location", i))
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}
	for i, e := range c.Envelope {
		if strings.TrimSpace(e.Element) == "" && strings.TrimSpace(e.Material) == "" {
			issues = append(issues, fmt.Sprintf("envelope[%d]: neither element nor material", i))
			continue
		}
		out.Envelope = append(out.Envelope, e)
	}
	for k, v := range c.Provenance {
		out.Provenance[k] = v
	}
	return out, issues
}

// NormalizeMonthKey converts "1", "01", " 1 " to "01"
func NormalizeMonthKey(k string) (string, bool) {
	k = strings.TrimSpace(k)
	n := 0
	if k == "" || len(k) > 2 {
		return "", false
	}
	for _, ch := range k {
		if ch < '0' || ch > '9' {
			return "", false
		}
		n = n*10 + int(ch-'0')
	}
	if n < 1 || n > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d", n), true
}

// SortedMonthly returns monthly keys in calendar order
func SortedMonthly(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AnalyzeSheetResult outcome of semantic analysis of one sheet
type AnalyzeSheetResult struct {
	Partial    CanonicalSourceData `json:"partial"`
	Confidence float64             `json:"confidence"`
	Notes      []string            `json:"notes"`
	UsedAI     bool                `json:"used_ai"`
}

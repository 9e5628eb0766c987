package model

// DataType kind of figures in a balance act
type DataType string

const (
	DataTypeConsumption DataType = "consumption"
	DataTypeProduction  DataType = "production"
	DataTypeRealization DataType = "realization"
)

// PeriodUnknown period marker when nothing could be inferred
const PeriodUnknown = "unknown"

// NodeRecord per-metering-node figures extracted from a balance act
type NodeRecord struct {
	NodeName            string         `json:"node_name"`
	Period              string         `json:"period"`
	ActiveEnergyKWh     *float64       `json:"active_energy_kwh"`
	ReactiveEnergyKVarh *float64       `json:"reactive_energy_kvarh"`
	CostSum             *float64       `json:"cost_sum"`
	DataType            DataType       `json:"data_type"`
	DataJSON            map[string]any `json:"data_json"`
}

// PopulatedCount number of non-null numeric fields
func (r NodeRecord) PopulatedCount() int {
	n := 0
	for _, v := range []*float64{r.ActiveEnergyKWh, r.ReactiveEnergyKVarh, r.CostSum} {
		if v != nil {
			n++
		}
	}
	return n
}

// NodesArtifact content of {batch_id}_nodes.json
type NodesArtifact struct {
	Nodes   []NodeRecord `json:"nodes"`
	Summary NodesSummary `json:"summary"`
}

// NodesSummary summary block of the nodes artifact
type NodesSummary struct {
	TotalNodes int `json:"total_nodes"`
}

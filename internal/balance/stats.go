package balance

import (
	"log"
	"path/filepath"
	"sort"
	"strings"

	"energypassport/internal/metrics"
	"energypassport/internal/model"
)

// Stats summary of one extraction
type Stats struct {
	Nodes         int
	WithActive    int
	WithReactive  int
	WithCost      int
	Periods       []string
	TotalActive   float64
	TotalReactive float64
	TotalCost     float64
}

// Summarize counts and totals of a record set
func Summarize(records []model.NodeRecord) Stats {
	st := Stats{Nodes: len(records)}
	periods := map[string]bool{}
	for _, r := range records {
		periods[r.Period] = true
		if r.ActiveEnergyKWh != nil {
			st.WithActive++
			st.TotalActive += *r.ActiveEnergyKWh
		}
		if r.ReactiveEnergyKVarh != nil {
			st.WithReactive++
			st.TotalReactive += *r.ReactiveEnergyKVarh
		}
		if r.CostSum != nil {
			st.WithCost++
			st.TotalCost += *r.CostSum
		}
	}
	for p := range periods {
		st.Periods = append(st.Periods, p)
	}
	sort.Strings(st.Periods)
	return st
}

func logStatistics(records []model.NodeRecord, sourceFile string, dataType model.DataType) {
	if len(records) == 0 {
		return
	}
	st := Summarize(records)
	log.Printf("[balance] %s: nodes=%d active=%d reactive=%d cost=%d periods=[%s] total_kwh=%.2f total_kvarh=%.2f total_cost=%.2f",
		filepath.Base(sourceFile), st.Nodes, st.WithActive, st.WithReactive, st.WithCost,
		strings.Join(st.Periods, ", "), st.TotalActive, st.TotalReactive, st.TotalCost)
	metrics.AddNodeRecords(string(dataType), st.Nodes)
}

package balance

import (
	"log"
	"path/filepath"

	"energypassport/internal/model"
)

type nodeKey struct {
	name   string
	period string
}

// Deduplicate merges records sharing (node_name, period). The record with
// strictly more populated values wins, otherwise nulls are filled from the
// newcomer. First-seen order is kept.
func Deduplicate(records []model.NodeRecord, sourceFile string) []model.NodeRecord {
	index := make(map[nodeKey]int, len(records))
	out := make([]model.NodeRecord, 0, len(records))
	for _, rec := range records {
		key := nodeKey{name: rec.NodeName, period: rec.Period}
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.PopulatedCount() > out[pos].PopulatedCount() {
			out[pos] = rec
			continue
		}
		out[pos] = complement(out[pos], rec)
	}
	if len(out) < len(records) {
		log.Printf("[balance] %s: %d records deduplicated into %d nodes", filepath.Base(sourceFile), len(records), len(out))
	}
	return out
}

func complement(dst, src model.NodeRecord) model.NodeRecord {
	if dst.ActiveEnergyKWh == nil {
		dst.ActiveEnergyKWh = src.ActiveEnergyKWh
	}
	if dst.ReactiveEnergyKVarh == nil {
		dst.ReactiveEnergyKVarh = src.ReactiveEnergyKVarh
	}
	if dst.CostSum == nil {
		dst.CostSum = src.CostSum
	}
	return dst
}

package merge

import (
	"energypassport/internal/model"
)

// Default thresholds
const (
	DefaultFillMin     = 0.6
	DefaultOverrideMin = 0.8
)

// Thresholds confidence gates for AI contribution
type Thresholds struct {
	FillMin     float64
	OverrideMin float64
}

// DefaultThresholds FILL 0.6 / OVERRIDE 0.8
func DefaultThresholds() Thresholds {
	return Thresholds{FillMin: DefaultFillMin, OverrideMin: DefaultOverrideMin}
}

type policy int

const (
	policyDeterministic policy = iota
	policyAIOnly
	policyCombined
)

// choose evaluates the branches in fixed order: AI-only needs a weak
// deterministic result, combined needs one below OverrideMin.
func (th Thresholds) choose(detConf, aiConf float64) policy {
	if aiConf >= th.OverrideMin && detConf < th.FillMin {
		return policyAIOnly
	}
	if aiConf >= th.FillMin && detConf < th.OverrideMin {
		return policyCombined
	}
	return policyDeterministic
}

// Merge combines deterministic and AI canonical data into one result
func Merge(det, ai model.CanonicalSourceData, detConf, aiConf float64, th Thresholds) model.AnalyzeSheetResult {
	p := th.choose(detConf, aiConf)

	merged := model.CanonicalSourceData{
		Resources: mergeList(p, det.Resources, ai.Resources, func(r model.ResourceEntry) string {
			if r.Name != "" {
				return r.Name
			}
			return r.Resource
		}),
		Equipment: mergeList(p, det.Equipment, ai.Equipment, func(e model.EquipmentItem) string {
			return e.Name
		}),
		Nodes: mergeList(p, det.Nodes, ai.Nodes, func(n model.NodeItem) string {
			if n.NodeID != "" {
				return n.NodeID
			}
			return n.Location
		}),
		Envelope: mergeList(p, det.Envelope, ai.Envelope, func(e model.EnvelopeItem) string {
			if e.Element != "" {
				return e.Element
			}
			return e.Material
		}),
		Provenance: make(map[string]model.ProvenanceEntry, len(det.Provenance)+len(ai.Provenance)),
	}
	for k, v := range ai.Provenance {
		merged.Provenance[k] = v
	}
	// deterministic provenance wins on collision
	for k, v := range det.Provenance {
		merged.Provenance[k] = v
	}

	usedAI := aiConf >= th.FillMin && ai.HasAnySection()
	notes := []string{"deterministic only"}
	if usedAI {
		notes = []string{"ai contributed"}
	}
	conf := detConf
	if aiConf > conf {
		conf = aiConf
	}
	return model.AnalyzeSheetResult{
		Partial:    merged,
		Confidence: conf,
		Notes:      notes,
		UsedAI:     usedAI,
	}
}

func mergeList[T any](p policy, det, ai []T, key func(T) string) []T {
	switch p {
	case policyAIOnly:
		return dedup(ai, key)
	case policyCombined:
		all := make([]T, 0, len(det)+len(ai))
		all = append(all, det...)
		all = append(all, ai...)
		return dedup(all, key)
	default:
		return dedup(det, key)
	}
}

// dedup keeps the first item per key; earlier items win ties
func dedup[T any](items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

package artifacts

import (
	"context"
	"errors"
	"fmt"

	"energypassport/internal/model"
)

// ErrNotFound artifact does not exist
var ErrNotFound = errors.New("artifact not found")

// Store per-batch JSON artifacts. Each artifact is written once by the
// upload that owns it and only read afterwards.
type Store interface {
	WriteJSON(ctx context.Context, name string, v any) error
	ReadJSON(ctx context.Context, name string, out any) error
	Exists(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) error
}

// Artifact kinds
const (
	KindAggregated = "aggregated"
	KindNodes      = "nodes"
	KindUsage      = "usage"
	KindEquipment  = "equipment"
	KindEnvelope   = "envelope"
)

// Name artifact name of a batch, e.g. "{batch}_aggregated.json"
func Name(batchID, kind string) string {
	return fmt.Sprintf("%s_%s.json", batchID, kind)
}

// EnterpriseName artifact name of an enterprise-level aggregate
func EnterpriseName(enterpriseID int64) string {
	return fmt.Sprintf("enterprise_%d_%s.json", enterpriseID, KindAggregated)
}

// UsageArtifact yearly usage categories of one upload
type UsageArtifact struct {
	Years map[int]map[string]float64 `json:"years"`
}

// CanonicalArtifact semantically mapped envelope or equipment content of one upload
type CanonicalArtifact struct {
	Source    string                `json:"source"`
	Sheets    []string              `json:"sheets"`
	Envelope  []model.EnvelopeItem  `json:"envelope,omitempty"`
	Equipment []model.EquipmentItem `json:"equipment,omitempty"`
	Notes     []string              `json:"notes,omitempty"`
}

// Loader reads aggregated datasets for the cross-file merge
type Loader struct {
	Store Store
}

// LoadAggregated the aggregated artifact of an upload
func (l Loader) LoadAggregated(ctx context.Context, u model.Upload) (*model.AggregatedDataset, error) {
	var ds model.AggregatedDataset
	if err := l.Store.ReadJSON(ctx, Name(u.BatchID, KindAggregated), &ds); err != nil {
		return nil, err
	}
	if ds.Resources == nil {
		ds.Resources = map[string]model.ResourceQuarters{}
	}
	return &ds, nil
}

// RemoveBatch deletes every artifact a batch may have written
func RemoveBatch(ctx context.Context, s Store, batchID string) error {
	var errs []error
	for _, kind := range []string{KindAggregated, KindNodes, KindUsage, KindEquipment, KindEnvelope} {
		if err := s.Remove(ctx, Name(batchID, kind)); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

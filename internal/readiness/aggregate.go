package readiness

import (
	"context"
	"fmt"
	"log"

	"energypassport/internal/artifacts"
	"energypassport/internal/crossfile"
	"energypassport/internal/distributor"
	"energypassport/internal/model"
)

// Distribution sources of the by_usage split
const (
	DistributionUsage    = "usage"
	DistributionStandard = "standard"
)

// EnterpriseAggregate merged and distributed dataset of all successful
// uploads of an enterprise, the input of passport generation
type EnterpriseAggregate struct {
	EnterpriseID int64                    `json:"enterprise_id"`
	Distribution string                   `json:"distribution"`
	Dataset      *model.AggregatedDataset `json:"dataset"`
	Report       crossfile.MergeReport    `json:"report"`
}

// Aggregate merges the enterprise's uploads, distributes electricity by
// usage category and saves the result as enterprise_{id}_aggregated.json
func (v *Validator) Aggregate(ctx context.Context, enterpriseID int64) (*EnterpriseAggregate, error) {
	uploads, err := v.uploads.ListUploads(ctx, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	var success []model.Upload
	for _, u := range uploads {
		if u.Status == model.UploadSuccess {
			success = append(success, u)
		}
	}

	agg := v.merge(ctx, enterpriseID, success)
	if err := v.store.WriteJSON(ctx, artifacts.EnterpriseName(enterpriseID), agg); err != nil {
		return nil, fmt.Errorf("failed to save enterprise aggregate: %w", err)
	}
	return agg, nil
}

func (v *Validator) merge(ctx context.Context, enterpriseID int64, success []model.Upload) *EnterpriseAggregate {
	ds, report := crossfile.Merge(ctx, artifacts.Loader{Store: v.store}, success)
	for _, s := range report.Skipped {
		log.Printf("[readiness] enterprise %d: skipped %s: %s", enterpriseID, s.Filename, s.Reason)
	}
	agg := &EnterpriseAggregate{EnterpriseID: enterpriseID, Report: report}
	if yearly := v.loadUsage(ctx, success); len(yearly) > 0 {
		agg.Dataset = distributor.Distribute(ds, yearly, model.ResourceElectricity)
		agg.Distribution = DistributionUsage
	} else {
		agg.Dataset = distributor.DistributeStandard(ds, model.ResourceElectricity)
		agg.Distribution = DistributionStandard
	}
	return agg
}

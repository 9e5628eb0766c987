package crossfile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"energypassport/internal/aggregator"
	"energypassport/internal/model"
)

// ErrNoArtifact the upload has no aggregated artifact
var ErrNoArtifact = errors.New("aggregated artifact not found")

// ArtifactLoader reads the aggregated dataset produced for one upload
type ArtifactLoader interface {
	LoadAggregated(ctx context.Context, upload model.Upload) (*model.AggregatedDataset, error)
}

// SkippedUpload upload left out of the merge
type SkippedUpload struct {
	UploadID int64  `json:"uploadId"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// MergeReport what went into an enterprise aggregate
type MergeReport struct {
	Merged   []int64         `json:"merged"`
	Skipped  []SkippedUpload `json:"skipped"`
	Quarters int             `json:"quarters"`
}

// Merge combines the aggregated datasets of all successful uploads into one.
// Uploads are applied in creation order. Inputs are never mutated and quarter
// totals of the result are recomputed from the concatenated months.
func Merge(ctx context.Context, loader ArtifactLoader, uploads []model.Upload) (*model.AggregatedDataset, MergeReport) {
	report := MergeReport{Merged: []int64{}, Skipped: []SkippedUpload{}}
	out := model.NewAggregatedDataset("merged")

	ordered := make([]model.Upload, 0, len(uploads))
	for _, u := range uploads {
		if u.Status == model.UploadSuccess {
			ordered = append(ordered, u)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	missing := map[string]bool{}
	found := map[string]bool{}
	for _, u := range ordered {
		if err := ctx.Err(); err != nil {
			report.Skipped = append(report.Skipped, SkippedUpload{UploadID: u.ID, Filename: u.Filename, Reason: err.Error()})
			continue
		}
		ds, err := loader.LoadAggregated(ctx, u)
		if err == nil && ds == nil {
			err = ErrNoArtifact
		}
		if err != nil {
			log.Printf("[crossfile] skip upload %d (%s): %v", u.ID, u.Filename, err)
			report.Skipped = append(report.Skipped, SkippedUpload{UploadID: u.ID, Filename: u.Filename, Reason: err.Error()})
			continue
		}
		mergeInto(out, ds)
		collectSheets(missing, found, ds)
		for _, n := range ds.Notes {
			out.Notes = append(out.Notes, fmt.Sprintf("%s: %s", u.Filename, n))
		}
		report.Merged = append(report.Merged, u.ID)
	}

	aggregator.ComputeQuarterTotals(out.Resources)
	for label := range found {
		delete(missing, label)
	}
	out.MissingSheets = sortedKeys(missing)
	out.GeneratedAt = time.Now().UTC()
	for _, rq := range out.Resources {
		report.Quarters += len(rq)
	}
	log.Printf("[crossfile] merged=%d skipped=%d quarters=%d", len(report.Merged), len(report.Skipped), report.Quarters)
	return out, report
}

// mergeInto folds src into dst keyed by (resource, quarter_key). Months are
// concatenated; totals and by_usage are replaced only by non-empty values.
func mergeInto(dst, src *model.AggregatedDataset) {
	for resource, rq := range src.Resources {
		for key, rec := range rq {
			if rec == nil {
				continue
			}
			existing, ok := dst.Resources[resource][key]
			if !ok {
				dst.Quarter(resource, rec.Year, rec.Quarter, key)
				dst.Resources[resource][key] = rec.Clone()
				continue
			}
			incoming := rec.Clone()
			existing.Months = append(existing.Months, incoming.Months...)
			if len(incoming.QuarterTotals) > 0 {
				existing.QuarterTotals = incoming.QuarterTotals
			}
			if len(incoming.ByUsage) > 0 {
				existing.ByUsage = incoming.ByUsage
			}
		}
	}
}

// collectSheets a family is found when a file was checked for it and did not
// report it missing. Families a file was never checked for say nothing.
// Artifacts without checked_sheets were produced by the multi-sheet path.
func collectSheets(missing, found map[string]bool, ds *model.AggregatedDataset) {
	checked := ds.CheckedSheets
	if len(checked) == 0 {
		checked = aggregator.SheetFamilies()
	}
	reported := map[string]bool{}
	for _, s := range ds.MissingSheets {
		reported[s] = true
		missing[s] = true
	}
	for _, s := range checked {
		if !reported[s] {
			found[s] = true
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

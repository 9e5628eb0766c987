package readiness

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"energypassport/internal/artifacts"
	"energypassport/internal/classifier"
	"energypassport/internal/metrics"
	"energypassport/internal/model"
)

// Completeness weights
const (
	requiredWeight = 0.6
	quartersWeight = 0.3
	optionalWeight = 0.1
)

// UploadLister source of an enterprise's uploads
type UploadLister interface {
	ListUploads(ctx context.Context, enterpriseID int64) ([]model.Upload, error)
}

// ResourceStatus per-resource availability detail
type ResourceStatus struct {
	Available         bool   `json:"available"`
	QuartersCount     int    `json:"quarters_count"`
	MinQuarters       int    `json:"min_quarters"`
	HasEnoughQuarters bool   `json:"has_enough_quarters"`
	Description       string `json:"description"`
}

// Result readiness of an enterprise for passport generation
type Result struct {
	Ready                   bool                       `json:"ready"`
	CompletenessScore       float64                    `json:"completeness_score"`
	MissingResources        []string                   `json:"missing_resources"`
	MissingFiles            []string                   `json:"missing_files"`
	AvailableResources      []string                   `json:"available_resources"`
	AvailableFiles          []string                   `json:"available_files"`
	Warnings                []string                   `json:"warnings"`
	ProgressPercentage      int                        `json:"progress_percentage"`
	RequiredResourcesStatus map[string]ResourceStatus  `json:"required_resources_status"`
	OptionalResourcesStatus map[string]ResourceStatus  `json:"optional_resources_status"`
	SheetValidation         map[string]SheetValidation `json:"sheet_validation"`
	MissingSheetData        []string                   `json:"missing_sheet_data"`
}

// Validator computes readiness from stored uploads and their artifacts
type Validator struct {
	uploads    UploadLister
	store      artifacts.Store
	classifier *classifier.Classifier
	sheets     SheetRequirements
}

// NewValidator nil classifier or sheets fall back to the defaults
func NewValidator(uploads UploadLister, store artifacts.Store, cls *classifier.Classifier, sheets SheetRequirements) *Validator {
	if cls == nil {
		cls = classifier.New(nil)
	}
	if sheets == nil {
		sheets = DefaultPassportSheets()
	}
	return &Validator{uploads: uploads, store: store, classifier: cls, sheets: sheets}
}

// Validate never fails: missing data shows up in the missing lists and
// internal errors become ready=false with a warning
func (v *Validator) Validate(ctx context.Context, enterpriseID int64) (res Result) {
	matrix := v.classifier.Matrix()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[readiness] enterprise %d: recovered: %v", enterpriseID, r)
			res = v.failure(matrix, fmt.Sprintf("internal error during readiness check: %v", r))
		}
		metrics.SetReadiness(strconv.FormatInt(enterpriseID, 10), res.CompletenessScore)
	}()

	uploads, err := v.uploads.ListUploads(ctx, enterpriseID)
	if err != nil {
		log.Printf("[readiness] enterprise %d: failed to list uploads: %v", enterpriseID, err)
		return v.failure(matrix, fmt.Sprintf("internal error during readiness check: %v", err))
	}
	if len(uploads) == 0 {
		res = v.failure(matrix, "no uploaded files")
		return res
	}

	var success []model.Upload
	availableFiles := []string{}
	for _, u := range uploads {
		if u.Status == model.UploadSuccess && u.Filename != "" {
			success = append(success, u)
			availableFiles = append(availableFiles, u.Filename)
		}
	}

	ds := v.merge(ctx, enterpriseID, success).Dataset

	available := map[string]bool{}
	for name, quarters := range ds.Resources {
		if len(quarters) > 0 {
			available[name] = true
		}
	}
	for _, u := range success {
		tag := u.ResourceTag
		if tag == "" || tag == model.TagOther {
			tag = v.classifier.Classify(u.Filename, nil, "")
		}
		if tag != model.TagOther {
			available[string(tag)] = true
		}
	}
	for kind, exists := range v.specializedArtifacts(ctx, success) {
		if exists {
			available[kind] = true
		}
	}
	nodes := v.loadNodes(ctx, success)

	required := matrix.RequiredResources()
	optional := matrix.OptionalResources()
	missing := []string{}
	for _, name := range required {
		if !available[name] {
			missing = append(missing, name)
		}
	}

	res = Result{
		MissingResources:        missing,
		MissingFiles:            missingFiles(matrix, missing, availableFiles),
		AvailableResources:      sortedSet(available),
		AvailableFiles:          availableFiles,
		RequiredResourcesStatus: resourceStatus(matrix, required, available, ds),
		OptionalResourcesStatus: resourceStatus(matrix, optional, available, ds),
		SheetValidation:         map[string]SheetValidation{},
		MissingSheetData:        []string{},
	}
	res.CompletenessScore = round2(completeness(matrix, required, optional, missing, available, ds))
	res.Warnings = warnings(matrix, missing, res.MissingFiles, available, ds)

	sheetsValid := true
	data := SheetData{Resources: ds.Resources, Nodes: nodes}
	for _, req := range v.sheets.Sheets() {
		if !req.Required {
			continue
		}
		errs := v.sheets.Validate(req.Name, data)
		res.SheetValidation[req.Name] = SheetValidation{
			Valid:       len(errs) == 0,
			Required:    req.Required,
			Errors:      append([]string{}, errs...),
			Description: req.Description,
		}
		if len(errs) > 0 {
			sheetsValid = false
			res.Warnings = append(res.Warnings, errs...)
			for _, e := range errs {
				res.MissingSheetData = append(res.MissingSheetData, req.Name+": "+e)
			}
		}
	}

	res.Ready = len(missing) == 0 && res.CompletenessScore >= matrix.Minimal.MinCompletenessScore && sheetsValid
	res.ProgressPercentage = int(res.CompletenessScore * 100)
	log.Printf("[readiness] enterprise %d: ready=%v completeness=%.2f missing=%v", enterpriseID, res.Ready, res.CompletenessScore, missing)
	return res
}

func (v *Validator) failure(matrix *classifier.Matrix, warning string) Result {
	return Result{
		MissingResources:        matrix.RequiredResources(),
		MissingFiles:            []string{},
		AvailableResources:      []string{},
		AvailableFiles:          []string{},
		Warnings:                []string{warning},
		RequiredResourcesStatus: map[string]ResourceStatus{},
		OptionalResourcesStatus: map[string]ResourceStatus{},
		SheetValidation:         map[string]SheetValidation{},
		MissingSheetData:        []string{},
	}
}

// loadUsage yearly usage categories of all uploads, later uploads win per year
func (v *Validator) loadUsage(ctx context.Context, uploads []model.Upload) map[int]map[string]float64 {
	yearly := map[int]map[string]float64{}
	for _, u := range uploads {
		var usage artifacts.UsageArtifact
		if err := v.store.ReadJSON(ctx, artifacts.Name(u.BatchID, artifacts.KindUsage), &usage); err != nil {
			if !errors.Is(err, artifacts.ErrNotFound) {
				log.Printf("[readiness] %v", err)
			}
			continue
		}
		for year, cats := range usage.Years {
			yearly[year] = cats
		}
	}
	return yearly
}

func (v *Validator) loadNodes(ctx context.Context, uploads []model.Upload) []model.NodeRecord {
	var nodes []model.NodeRecord
	for _, u := range uploads {
		var a model.NodesArtifact
		if err := v.store.ReadJSON(ctx, artifacts.Name(u.BatchID, artifacts.KindNodes), &a); err != nil {
			if !errors.Is(err, artifacts.ErrNotFound) {
				log.Printf("[readiness] %v", err)
			}
			continue
		}
		nodes = append(nodes, a.Nodes...)
	}
	return nodes
}

// specializedArtifacts resources that live outside the aggregated dataset
func (v *Validator) specializedArtifacts(ctx context.Context, uploads []model.Upload) map[string]bool {
	found := map[string]bool{}
	for _, u := range uploads {
		for _, kind := range []string{artifacts.KindNodes, artifacts.KindEquipment, artifacts.KindEnvelope} {
			if found[kind] {
				continue
			}
			ok, err := v.store.Exists(ctx, artifacts.Name(u.BatchID, kind))
			if err != nil {
				log.Printf("[readiness] %v", err)
				continue
			}
			found[kind] = ok
		}
	}
	return found
}

func minQuarters(matrix *classifier.Matrix, name string) int {
	if req, ok := matrix.Requirement(name); ok && req.MinQuarters > 0 {
		return req.MinQuarters
	}
	return matrix.Minimal.MinQuarters
}

// completeness 0.6 required fraction + 0.3 quarter coverage + 0.1 optional
// fraction, clamped to [0, 1]
func completeness(matrix *classifier.Matrix, required, optional, missing []string, available map[string]bool, ds *model.AggregatedDataset) float64 {
	requiredScore := 1.0
	if len(required) > 0 {
		requiredScore = float64(len(required)-len(missing)) / float64(len(required))
	}

	quartersScore := 0.0
	have, need := 0, 0
	for _, name := range required {
		have += len(ds.Resources[name])
		need += minQuarters(matrix, name)
	}
	if need > 0 {
		quartersScore = math.Min(float64(have)/float64(need), 1)
	}

	optionalScore := 0.0
	if len(optional) > 0 {
		n := 0
		for _, name := range optional {
			if available[name] {
				n++
			}
		}
		optionalScore = float64(n) / float64(len(optional))
	}

	score := requiredScore*requiredWeight + quartersScore*quartersWeight + optionalScore*optionalWeight
	return math.Max(0, math.Min(1, score))
}

func resourceStatus(matrix *classifier.Matrix, names []string, available map[string]bool, ds *model.AggregatedDataset) map[string]ResourceStatus {
	out := make(map[string]ResourceStatus, len(names))
	for _, name := range names {
		req, _ := matrix.Requirement(name)
		count := len(ds.Resources[name])
		want := minQuarters(matrix, name)
		out[name] = ResourceStatus{
			Available:         available[name],
			QuartersCount:     count,
			MinQuarters:       want,
			HasEnoughQuarters: count >= want,
			Description:       req.Description,
		}
	}
	return out
}

// missingFiles first file pattern of every missing resource no uploaded file matches
func missingFiles(matrix *classifier.Matrix, missing, files []string) []string {
	out := []string{}
	for _, name := range missing {
		req, ok := matrix.Requirement(name)
		if !ok || len(req.FilePatterns) == 0 {
			continue
		}
		found := false
		for _, f := range files {
			if matrix.MatchesFilePattern(f, name) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, req.FilePatterns[0])
		}
	}
	return out
}

func warnings(matrix *classifier.Matrix, missing, files []string, available map[string]bool, ds *model.AggregatedDataset) []string {
	var out []string
	for _, name := range missing {
		desc := name
		if req, ok := matrix.Requirement(name); ok && req.Description != "" {
			desc = req.Description
		}
		out = append(out, "missing required resource: "+desc)
	}
	if len(files) > 0 {
		out = append(out, "files to upload: "+strings.Join(files, ", "))
	}
	for _, name := range ds.SortedResourceNames() {
		if !available[name] {
			continue
		}
		count, want := len(ds.Resources[name]), minQuarters(matrix, name)
		if count < want {
			out = append(out, fmt.Sprintf("resource %s: not enough quarters (%d of %d)", name, count, want))
		}
	}
	if len(out) == 0 {
		out = append(out, "all required data uploaded")
	}
	return out
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

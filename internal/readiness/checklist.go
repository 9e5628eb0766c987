package readiness

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"energypassport/internal/classifier"
	"energypassport/internal/model"
)

// ChecklistItem one file the passport asks for
type ChecklistItem struct {
	Resource     string   `json:"resource"`
	Description  string   `json:"description"`
	FilePatterns []string `json:"file_patterns"`
	MinQuarters  *int     `json:"min_quarters"`
	Uploaded     bool     `json:"uploaded"`
}

// Checklist required and optional files against what was uploaded
type Checklist struct {
	RequiredFiles   []ChecklistItem `json:"required_files"`
	OptionalFiles   []ChecklistItem `json:"optional_files"`
	UploadedFiles   []string        `json:"uploaded_files"`
	MissingRequired []string        `json:"missing_required"`
}

// Checklist upload checklist of an enterprise. A listing failure yields the
// matrix with nothing uploaded.
func (v *Validator) Checklist(ctx context.Context, enterpriseID int64) (Checklist, error) {
	matrix := v.classifier.Matrix()
	uploads, err := v.uploads.ListUploads(ctx, enterpriseID)
	if err != nil {
		log.Printf("[readiness] enterprise %d: failed to list uploads: %v", enterpriseID, err)
		uploads = nil
		err = fmt.Errorf("failed to list uploads: %w", err)
	}

	var success []model.Upload
	cl := Checklist{RequiredFiles: []ChecklistItem{}, OptionalFiles: []ChecklistItem{}, UploadedFiles: []string{}, MissingRequired: []string{}}
	for _, u := range uploads {
		if u.Status == model.UploadSuccess {
			success = append(success, u)
			cl.UploadedFiles = append(cl.UploadedFiles, u.Filename)
		}
	}

	for _, name := range matrix.Order {
		req, ok := matrix.Requirement(name)
		if !ok {
			continue
		}
		item := ChecklistItem{
			Resource:     name,
			Description:  req.Description,
			FilePatterns: req.FilePatterns,
			Uploaded:     uploadedFor(matrix, name, req, success),
		}
		if req.MinQuarters > 0 {
			q := req.MinQuarters
			item.MinQuarters = &q
		}
		if req.Required {
			cl.RequiredFiles = append(cl.RequiredFiles, item)
			if !item.Uploaded {
				cl.MissingRequired = append(cl.MissingRequired, name)
			}
		} else {
			cl.OptionalFiles = append(cl.OptionalFiles, item)
		}
	}
	return cl, err
}

// uploadedFor pattern match with or without extension, a keyword in the
// name, or the tag the upload was classified with
func uploadedFor(matrix *classifier.Matrix, name string, req classifier.ResourceRequirement, uploads []model.Upload) bool {
	for _, u := range uploads {
		if string(u.ResourceTag) == name {
			return true
		}
		lower := strings.ToLower(u.Filename)
		stem := strings.TrimSuffix(lower, filepath.Ext(lower))
		if matrix.MatchesFilePattern(lower, name) {
			return true
		}
		for _, p := range req.FilePatterns {
			p = strings.ToLower(p)
			if strings.Contains(stem, strings.TrimSuffix(p, filepath.Ext(p))) {
				return true
			}
		}
		for _, kw := range req.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

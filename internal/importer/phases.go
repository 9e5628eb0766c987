package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"energypassport/internal/aggregator"
	"energypassport/internal/artifacts"
	"energypassport/internal/balance"
	"energypassport/internal/model"
	"energypassport/internal/parser"
	"energypassport/internal/semantic"
)

const (
	previewHeaderRows = 3
	previewSampleRows = 20
)

var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".pdf":  true,
	".docx": true,
	".doc":  true,
}

var workbookExtensions = map[string]bool{".xlsx": true, ".xls": true}

// tags whose files carry no monthly resource series
var nonSeriesTags = map[model.ResourceTag]bool{
	model.TagNodes:     true,
	model.TagEnvelope:  true,
	model.TagEquipment: true,
}

func (c *Coordinator) validate(ctx context.Context, run *ingestRun) (string, error) {
	st, err := os.Stat(run.opts.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", run.opts.FilePath)
	}
	if st.Size() == 0 {
		return "", fmt.Errorf("file %s is empty", run.filename)
	}
	if !supportedExtensions[run.ext] {
		return "", fmt.Errorf("unsupported file type %q", run.ext)
	}

	hash, err := fileHash(run.opts.FilePath)
	if err != nil {
		return "", err
	}
	logID, err := c.repo.CreateImportLog(ctx, run.upload.ID, run.filename, run.opts.FilePath, st.Size(), hash)
	if err != nil {
		return "", err
	}
	run.logID = logID

	if workbookExtensions[run.ext] {
		wb, err := parser.LoadWorkbook(run.opts.FilePath)
		if err != nil {
			return "", err
		}
		run.workbook = &wb
		run.content = parser.Preview(wb, previewHeaderRows, previewSampleRows)
		return fmt.Sprintf("workbook with %d sheets", len(wb.Sheets)), nil
	}
	return fmt.Sprintf("%s document, %d bytes", run.ext, st.Size()), nil
}

func (c *Coordinator) classify(ctx context.Context, run *ingestRun) (string, error) {
	tag := c.classifier.Classify(run.filename, run.content, run.opts.UserHint)
	run.report.ResourceTag = tag
	if err := c.repo.SetUploadTag(ctx, run.upload.ID, tag); err != nil {
		return "", err
	}
	return "tag " + string(tag), nil
}

func (c *Coordinator) aggregate(ctx context.Context, run *ingestRun) (string, error) {
	if run.workbook == nil {
		return "skipped: not a workbook", nil
	}
	if nonSeriesTags[run.report.ResourceTag] {
		return "skipped: " + string(run.report.ResourceTag) + " file", nil
	}

	ds, err := aggregator.Aggregate(*run.workbook, run.filename)
	if err != nil {
		return "", err
	}
	if err := c.writeArtifact(ctx, run, artifacts.KindAggregated, ds); err != nil {
		return "", err
	}

	run.report.Resources = ds.SortedResourceNames()
	run.report.MissingSheets = ds.MissingSheets
	run.report.QuarterCount = 0
	for _, rq := range ds.Resources {
		run.report.QuarterCount += len(rq)
	}
	if len(ds.Resources) == 0 {
		c.sendProgress(run.progress, ProgressEvent{
			Type:      "warning",
			Message:   "no monthly resource series found",
			Data:      map[string]any{"missing_sheets": ds.MissingSheets},
			Timestamp: time.Now(),
		})
	}
	return fmt.Sprintf("resources=%d quarters=%d", len(ds.Resources), run.report.QuarterCount), nil
}

func (c *Coordinator) specialized(ctx context.Context, run *ingestRun) (string, error) {
	tag := run.report.ResourceTag

	nodes := 0
	if tag == model.TagNodes || balance.IsBalanceFile(run.filename, run.content) {
		var records []model.NodeRecord
		if run.workbook != nil {
			records = balance.ExtractWorkbook(*run.workbook, run.filename)
		} else {
			records = c.extractor.Extract(ctx, run.opts.FilePath, run.content)
		}
		if len(records) > 0 {
			if err := c.writeArtifact(ctx, run, artifacts.KindNodes, balance.NewNodesArtifact(records)); err != nil {
				return "", err
			}
			if err := c.repo.InsertNodeRecords(ctx, run.upload.ID, records); err != nil {
				return "", err
			}
		}
		nodes = len(records)
		run.report.NodeRecords = nodes
	}

	usageYears := 0
	if run.workbook != nil && !nonSeriesTags[tag] {
		if yearly := aggregator.ParseUsageCategories(*run.workbook); len(yearly) > 0 {
			if err := c.writeArtifact(ctx, run, artifacts.KindUsage, artifacts.UsageArtifact{Years: yearly}); err != nil {
				return "", err
			}
			usageYears = len(yearly)
		}
	}

	sections := 0
	switch tag {
	case model.TagEnvelope:
		art := c.mapCanonical(ctx, run)
		if err := c.writeArtifact(ctx, run, artifacts.KindEnvelope, art); err != nil {
			return "", err
		}
		sections = len(art.Envelope)
	case model.TagEquipment:
		art := c.mapCanonical(ctx, run)
		if err := c.writeArtifact(ctx, run, artifacts.KindEquipment, art); err != nil {
			return "", err
		}
		sections = len(art.Equipment)
	}

	return fmt.Sprintf("nodes=%d usage_years=%d canonical_items=%d", nodes, usageYears, sections), nil
}

// mapCanonical runs the semantic analyzer over every sheet of the workbook
func (c *Coordinator) mapCanonical(ctx context.Context, run *ingestRun) artifacts.CanonicalArtifact {
	art := artifacts.CanonicalArtifact{Source: run.filename, Sheets: []string{}}
	if run.workbook == nil {
		return art
	}
	for _, sh := range run.workbook.Sheets {
		art.Sheets = append(art.Sheets, sh.Name)
		res := c.analyzer.AnalyzeSheet(ctx, sheetInput(sh))
		art.Envelope = append(art.Envelope, res.Partial.Envelope...)
		art.Equipment = append(art.Equipment, res.Partial.Equipment...)
		for _, n := range res.Notes {
			art.Notes = append(art.Notes, sh.Name+": "+n)
		}
	}
	return art
}

func (c *Coordinator) save(ctx context.Context, run *ingestRun) (string, error) {
	run.report.Status = model.UploadSuccess
	run.report.Duration = time.Since(run.started)
	if err := c.repo.UpdateUploadStatus(ctx, run.upload.ID, model.UploadSuccess, ""); err != nil {
		return "", err
	}
	if err := c.repo.FinishImportLog(ctx, run.logID, *run.report, ""); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d artifacts", len(run.written)), nil
}

func sheetInput(sh model.Sheet) semantic.SheetInput {
	in := semantic.SheetInput{
		SheetName:     sh.Name,
		LanguageHints: []string{"ru", "uz", "en"},
	}
	for i, row := range sh.Rows {
		if i >= previewHeaderRows && len(in.SampleRows) >= previewSampleRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = parser.CellString(v)
		}
		if i < previewHeaderRows {
			in.HeaderRows = append(in.HeaderRows, cells)
		} else {
			in.SampleRows = append(in.SampleRows, cells)
		}
	}
	return in
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

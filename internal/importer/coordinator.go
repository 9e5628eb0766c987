package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"energypassport/internal/artifacts"
	"energypassport/internal/balance"
	"energypassport/internal/classifier"
	"energypassport/internal/metrics"
	"energypassport/internal/model"
	"energypassport/internal/semantic"
)

// ErrCancelled the ingest context was cancelled between phases
var ErrCancelled = errors.New("ingest cancelled")

// Phase names
const (
	PhaseValidate    = "validate"
	PhaseClassify    = "classify"
	PhaseAggregate   = "aggregate"
	PhaseSpecialized = "specialized"
	PhaseSave        = "save"
)

// Repository persistence used by the pipeline
type Repository interface {
	CreateUpload(ctx context.Context, u model.Upload) (model.Upload, error)
	UpdateUploadStatus(ctx context.Context, id int64, status, errorMessage string) error
	SetUploadTag(ctx context.Context, id int64, tag model.ResourceTag) error
	InsertNodeRecords(ctx context.Context, uploadID int64, records []model.NodeRecord) error
	CreateImportLog(ctx context.Context, uploadID int64, filename, filePath string, fileSize int64, fileHash string) (int64, error)
	FinishImportLog(ctx context.Context, id int64, report model.IngestReport, errorMessage string) error
}

// Coordinator ingest coordinator
type Coordinator struct {
	repo       Repository
	artifacts  artifacts.Store
	classifier *classifier.Classifier
	extractor  *balance.Extractor
	analyzer   *semantic.Analyzer
}

// NewCoordinator nil classifier, extractor or analyzer fall back to defaults
// without OCR or LLM
func NewCoordinator(repo Repository, store artifacts.Store, cls *classifier.Classifier, ext *balance.Extractor, an *semantic.Analyzer) *Coordinator {
	if cls == nil {
		cls = classifier.New(nil)
	}
	if ext == nil {
		ext = balance.NewExtractor(nil)
	}
	if an == nil {
		an = semantic.NewAnalyzer(nil, semantic.DefaultSettings())
	}
	return &Coordinator{repo: repo, artifacts: store, classifier: cls, extractor: ext, analyzer: an}
}

// IngestOptions one uploaded file
type IngestOptions struct {
	EnterpriseID int64
	FilePath     string
	Filename     string // original name; defaults to the base of FilePath
	UserHint     string
}

// ProgressEvent pipeline progress
type ProgressEvent struct {
	Type      string    `json:"type"` // start/info/phase/warning/done/error
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ingestRun state of one pipeline run
type ingestRun struct {
	opts     IngestOptions
	filename string
	ext      string
	upload   model.Upload
	logID    int64
	started  time.Time
	report   *model.IngestReport
	progress chan ProgressEvent

	workbook *model.Workbook
	content  *model.RawContent
	written  []string
}

// Ingest runs the pipeline in the background and streams progress.
// Intermediate events may be dropped when the consumer lags; the final done
// or error event is always delivered, so the channel must be drained.
// The channel is closed after that event.
func (c *Coordinator) Ingest(ctx context.Context, opts IngestOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doIngest(ctx, opts, progressChan)
	}()

	return progressChan
}

// Run synchronous Ingest returning the final report
func (c *Coordinator) Run(ctx context.Context, opts IngestOptions) (*model.IngestReport, error) {
	var (
		report *model.IngestReport
		err    error
	)
	for evt := range c.Ingest(ctx, opts) {
		switch evt.Type {
		case "done":
			report, _ = evt.Data.(*model.IngestReport)
		case "error":
			report, _ = evt.Data.(*model.IngestReport)
			err = errors.New(evt.Message)
			if report != nil && report.Status == model.UploadCancelled {
				err = fmt.Errorf("%w: %s", ErrCancelled, evt.Message)
			}
		}
	}
	if report == nil && err == nil {
		err = errors.New("ingest finished without a report")
	}
	return report, err
}

func (c *Coordinator) doIngest(ctx context.Context, opts IngestOptions, progressChan chan ProgressEvent) {
	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.FilePath)
	}
	run := &ingestRun{
		opts:     opts,
		filename: filename,
		ext:      strings.ToLower(filepath.Ext(filename)),
		started:  time.Now(),
		progress: progressChan,
		report: &model.IngestReport{
			BatchID:  uuid.NewString(),
			Filename: filename,
			Status:   model.UploadProcessing,
		},
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: "starting ingest",
		Data: map[string]string{
			"filename": filename,
			"batch_id": run.report.BatchID,
		},
		Timestamp: time.Now(),
	})

	upload, err := c.repo.CreateUpload(context.WithoutCancel(ctx), model.Upload{
		BatchID:      run.report.BatchID,
		EnterpriseID: opts.EnterpriseID,
		Filename:     filename,
		FilePath:     opts.FilePath,
	})
	if err != nil {
		run.report.Status = model.UploadFailed
		c.sendFinal(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("failed to register upload: %v", err),
			Data:      run.report,
			Timestamp: time.Now(),
		})
		metrics.IncUpload(model.UploadFailed, "")
		return
	}
	run.upload = upload

	phases := []struct {
		name string
		fn   func(context.Context, *ingestRun) (string, error)
	}{
		{PhaseValidate, c.validate},
		{PhaseClassify, c.classify},
		{PhaseAggregate, c.aggregate},
		{PhaseSpecialized, c.specialized},
		{PhaseSave, c.save},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			c.cancel(run, p.name)
			return
		}
		if err := c.runPhase(ctx, run, p.name, p.fn); err != nil {
			if ctx.Err() != nil {
				c.cancel(run, p.name)
			} else {
				c.fail(run, p.name, err)
			}
			return
		}
	}

	run.report.Duration = time.Since(run.started)
	metrics.IncUpload(model.UploadSuccess, string(run.report.ResourceTag))
	c.sendFinal(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "ingest finished",
		Data:      run.report,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) runPhase(ctx context.Context, run *ingestRun, name string, fn func(context.Context, *ingestRun) (string, error)) error {
	start := time.Now()
	c.sendProgress(run.progress, ProgressEvent{
		Type:      "phase",
		Message:   fmt.Sprintf("phase %s started", name),
		Data:      map[string]string{"phase": name},
		Timestamp: start,
	})

	message, err := fn(ctx, run)
	elapsed := time.Since(start)
	metrics.ObservePhase(name, elapsed)

	result := model.PhaseResult{Phase: name, Status: "done", Message: message, Duration: elapsed}
	switch {
	case err != nil:
		result.Status = "error"
		result.Message = err.Error()
	case strings.HasPrefix(message, "skipped"):
		result.Status = "skipped"
	}
	run.report.Phases = append(run.report.Phases, result)

	if err == nil {
		c.sendProgress(run.progress, ProgressEvent{
			Type:      "info",
			Message:   fmt.Sprintf("phase %s: %s", name, result.Status),
			Data:      result,
			Timestamp: time.Now(),
		})
	}
	return err
}

func (c *Coordinator) cancel(run *ingestRun, phase string) {
	ctx := context.Background()
	c.discard(ctx, run)
	run.report.Status = model.UploadCancelled
	run.report.Duration = time.Since(run.started)
	message := fmt.Sprintf("ingest cancelled at phase %s", phase)
	c.finishRecords(ctx, run, model.UploadCancelled, message)
	metrics.IncUpload(model.UploadCancelled, string(run.report.ResourceTag))
	log.Printf("[importer] %s: %s", run.filename, message)
	c.sendFinal(run.progress, ProgressEvent{
		Type:      "error",
		Message:   message,
		Data:      run.report,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) fail(run *ingestRun, phase string, err error) {
	ctx := context.Background()
	c.discard(ctx, run)
	run.report.Status = model.UploadFailed
	run.report.Duration = time.Since(run.started)
	message := fmt.Sprintf("phase %s failed: %v", phase, err)
	c.finishRecords(ctx, run, model.UploadFailed, message)
	metrics.IncUpload(model.UploadFailed, string(run.report.ResourceTag))
	log.Printf("[importer] %s: %s", run.filename, message)
	c.sendFinal(run.progress, ProgressEvent{
		Type:      "error",
		Message:   message,
		Data:      run.report,
		Timestamp: time.Now(),
	})
}

// discard removes the artifacts written so far
func (c *Coordinator) discard(ctx context.Context, run *ingestRun) {
	if len(run.written) == 0 {
		return
	}
	if err := artifacts.RemoveBatch(ctx, c.artifacts, run.report.BatchID); err != nil {
		log.Printf("[importer] failed to remove artifacts of batch %s: %v", run.report.BatchID, err)
	}
	run.written = nil
}

func (c *Coordinator) finishRecords(ctx context.Context, run *ingestRun, status, message string) {
	if err := c.repo.UpdateUploadStatus(ctx, run.upload.ID, status, message); err != nil {
		log.Printf("[importer] failed to update upload %d: %v", run.upload.ID, err)
	}
	if run.logID > 0 {
		if err := c.repo.FinishImportLog(ctx, run.logID, *run.report, message); err != nil {
			log.Printf("[importer] %v", err)
		}
	}
}

func (c *Coordinator) writeArtifact(ctx context.Context, run *ingestRun, kind string, v any) error {
	name := artifacts.Name(run.report.BatchID, kind)
	if err := c.artifacts.WriteJSON(ctx, name, v); err != nil {
		return err
	}
	run.written = append(run.written, name)
	return nil
}

// sendProgress drops the event when the channel is full
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}

// sendFinal blocks until the consumer takes the done or error event
func (c *Coordinator) sendFinal(ch chan ProgressEvent, event ProgressEvent) {
	ch <- event
}

package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energypassport/internal/artifacts"
	"energypassport/internal/model"
	"energypassport/internal/store"
)

type fixture struct {
	store      *store.Store
	artifacts  *artifacts.FileStore
	enterprise int64
	coord      *Coordinator
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "passport.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	fs, err := artifacts.NewFileStore(filepath.Join(dir, "aggregated"))
	if err != nil {
		t.Fatalf("init artifacts: %v", err)
	}
	ent, err := st.CreateEnterprise(context.Background(), "Завод")
	if err != nil {
		t.Fatalf("create enterprise: %v", err)
	}
	return fixture{
		store:      st,
		artifacts:  fs,
		enterprise: ent,
		coord:      NewCoordinator(st, fs, nil, nil, nil),
	}
}

func writeXLSX(t *testing.T, name, sheet string, cells map[string]any) string {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func electricityWorkbook(t *testing.T) string {
	return writeXLSX(t, "energy.xlsx", "ЭЛЕКТР", map[string]any{
		"B1": 2022,
		"A2": "Январь", "B2": 1000, "A3": "Февраль", "B3": 1100, "A4": "Март", "B4": 1200,
		"A5": "Апрель", "B5": 1300,
	})
}

func (fx fixture) exists(t *testing.T, batch, kind string) bool {
	t.Helper()
	ok, err := fx.artifacts.Exists(context.Background(), artifacts.Name(batch, kind))
	if err != nil {
		t.Fatalf("exists %s: %v", kind, err)
	}
	return ok
}

func TestIngestElectricityWorkbook(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	var phases []string
	var report *model.IngestReport
	for evt := range fx.coord.Ingest(ctx, IngestOptions{
		EnterpriseID: fx.enterprise,
		FilePath:     electricityWorkbook(t),
		UserHint:     "electricity",
	}) {
		switch evt.Type {
		case "error":
			t.Fatalf("ingest error event: %s", evt.Message)
		case "phase":
			phases = append(phases, evt.Data.(map[string]string)["phase"])
		case "done":
			report = evt.Data.(*model.IngestReport)
		}
	}

	if report == nil {
		t.Fatalf("missing done report")
	}
	require.Equal(t, []string{PhaseValidate, PhaseClassify, PhaseAggregate, PhaseSpecialized, PhaseSave}, phases)
	require.Equal(t, model.UploadSuccess, report.Status)
	require.Equal(t, model.TagElectricity, report.ResourceTag)
	require.Equal(t, []string{model.ResourceElectricity}, report.Resources)
	require.Equal(t, 2, report.QuarterCount)
	require.True(t, fx.exists(t, report.BatchID, artifacts.KindAggregated))
	require.False(t, fx.exists(t, report.BatchID, artifacts.KindNodes))

	uploads, err := fx.store.ListUploads(ctx, fx.enterprise)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	require.Equal(t, model.UploadSuccess, uploads[0].Status)
	require.Equal(t, model.TagElectricity, uploads[0].ResourceTag)
	require.Equal(t, report.BatchID, uploads[0].BatchID)

	logs, err := fx.store.ListImportLogs(ctx, uploads[0].ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, model.UploadSuccess, logs[0].Status)
	require.Equal(t, 2, logs[0].QuarterCount)

	ds, err := artifacts.Loader{Store: fx.artifacts}.LoadAggregated(ctx, uploads[0])
	require.NoError(t, err)
	require.Equal(t, 3300.0, ds.Resources[model.ResourceElectricity]["2022-Q1"].QuarterTotals[model.FieldActiveKWh])
}

func TestIngestBalanceAct(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	path := writeXLSX(t, "баланс 2022.xlsx", "Баланс", map[string]any{
		"A1": "Узел учета", "B1": "Активная, кВт·ч", "C1": "Стоимость",
		"A2": "ТП-5", "B2": 1200, "C2": 180000,
	})

	report, err := fx.coord.Run(ctx, IngestOptions{EnterpriseID: fx.enterprise, FilePath: path, UserHint: "nodes"})
	require.NoError(t, err)
	require.Equal(t, model.TagNodes, report.ResourceTag)
	require.Equal(t, 1, report.NodeRecords)
	require.Equal(t, "skipped", report.Phases[2].Status)
	require.True(t, fx.exists(t, report.BatchID, artifacts.KindNodes))
	require.False(t, fx.exists(t, report.BatchID, artifacts.KindAggregated))

	uploads, err := fx.store.ListUploads(ctx, fx.enterprise)
	require.NoError(t, err)
	nodes, err := fx.store.ListNodeRecords(ctx, uploads[0].ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "ТП-5", nodes[0].NodeName)
}

func TestIngestEnvelopeWritesCanonicalArtifact(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	path := writeXLSX(t, "стены.xlsx", "Ограждающие", map[string]any{
		"A1": "Элемент", "B1": "Площадь, м2",
		"A2": "Стена наружная", "B2": 420,
	})

	report, err := fx.coord.Run(ctx, IngestOptions{EnterpriseID: fx.enterprise, FilePath: path, UserHint: "envelope"})
	require.NoError(t, err)
	require.Equal(t, model.TagEnvelope, report.ResourceTag)

	var art artifacts.CanonicalArtifact
	require.NoError(t, fx.artifacts.ReadJSON(ctx, artifacts.Name(report.BatchID, artifacts.KindEnvelope), &art))
	require.Equal(t, []string{"Ограждающие"}, art.Sheets)
	require.NotEmpty(t, art.Notes)
}

func TestIngestUnsupportedFileFails(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	report, err := fx.coord.Run(ctx, IngestOptions{EnterpriseID: fx.enterprise, FilePath: path})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrCancelled))
	require.Equal(t, model.UploadFailed, report.Status)

	uploads, err := fx.store.ListUploads(ctx, fx.enterprise)
	require.NoError(t, err)
	require.Equal(t, model.UploadFailed, uploads[0].Status)
	require.Contains(t, uploads[0].ErrorMessage, "unsupported file type")
}

func TestIngestCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := fx.coord.Run(ctx, IngestOptions{EnterpriseID: fx.enterprise, FilePath: electricityWorkbook(t)})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	require.Equal(t, model.UploadCancelled, report.Status)
	require.False(t, fx.exists(t, report.BatchID, artifacts.KindAggregated))

	uploads, err := fx.store.ListUploads(context.Background(), fx.enterprise)
	require.NoError(t, err)
	require.Equal(t, model.UploadCancelled, uploads[0].Status)
}

func TestDiscardRemovesWrittenArtifacts(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	run := &ingestRun{report: &model.IngestReport{BatchID: "b-discard"}}

	require.NoError(t, fx.coord.writeArtifact(ctx, run, artifacts.KindUsage, artifacts.UsageArtifact{}))
	require.True(t, fx.exists(t, "b-discard", artifacts.KindUsage))

	fx.coord.discard(ctx, run)
	require.False(t, fx.exists(t, "b-discard", artifacts.KindUsage))
	require.Empty(t, run.written)
}

func TestIngestDeliversFinalEventWhenBufferFull(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := electricityWorkbook(t)

	// a full channel drops every intermediate event until the consumer reads
	ch := make(chan ProgressEvent, 1)
	ch <- ProgressEvent{Type: "info", Message: "backlog"}
	go func() {
		defer close(ch)
		fx.coord.doIngest(context.Background(), IngestOptions{EnterpriseID: fx.enterprise, FilePath: path}, ch)
	}()

	var events []ProgressEvent
	for evt := range ch {
		events = append(events, evt)
	}
	last := events[len(events)-1]
	require.Equal(t, "done", last.Type)
	report, ok := last.Data.(*model.IngestReport)
	require.True(t, ok)
	require.Equal(t, model.UploadSuccess, report.Status)
}

package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"energypassport/internal/artifacts"
	"energypassport/internal/model"
	"energypassport/internal/units"
)

type uploadsFunc func(ctx context.Context, id int64) ([]model.Upload, error)

func (f uploadsFunc) ListUploads(ctx context.Context, id int64) ([]model.Upload, error) {
	return f(ctx, id)
}

func staticUploads(uploads ...model.Upload) UploadLister {
	return uploadsFunc(func(context.Context, int64) ([]model.Upload, error) { return uploads, nil })
}

func newStore(t *testing.T) *artifacts.FileStore {
	t.Helper()
	s, err := artifacts.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return s
}

func writeArtifact(t *testing.T, s artifacts.Store, batch, kind string, v any) {
	t.Helper()
	if err := s.WriteJSON(context.Background(), artifacts.Name(batch, kind), v); err != nil {
		t.Fatalf("write %s %s: %v", batch, kind, err)
	}
}

func quarters(resource string, fields ...string) *model.AggregatedDataset {
	ds := model.NewAggregatedDataset(resource)
	for q := 1; q <= 4; q++ {
		rec := ds.Quarter(resource, 2022, q, units.QuarterKey(2022, q))
		for _, f := range fields {
			rec.QuarterTotals[f] = 100
		}
	}
	return ds
}

func upload(id int64, batch, filename string, tag model.ResourceTag, status string) model.Upload {
	return model.Upload{
		ID: id, BatchID: batch, EnterpriseID: 1, Filename: filename, ResourceTag: tag, Status: status,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, int(id), 0, time.UTC),
	}
}

func TestValidateNoUploads(t *testing.T) {
	t.Parallel()

	res := NewValidator(staticUploads(), newStore(t), nil, nil).Validate(context.Background(), 1)
	require.False(t, res.Ready)
	require.Equal(t, 0.0, res.CompletenessScore)
	require.Equal(t, []string{"electricity", "gas", "envelope", "nodes"}, res.MissingResources)
	require.Equal(t, []string{"no uploaded files"}, res.Warnings)
}

func TestValidateReady(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	writeArtifact(t, s, "e1", artifacts.KindAggregated, quarters(model.ResourceElectricity, model.FieldActiveKWh, model.FieldReactiveKVarh))
	writeArtifact(t, s, "g1", artifacts.KindAggregated, quarters(model.ResourceGas, model.FieldVolumeM3))
	writeArtifact(t, s, "n1", artifacts.KindNodes, model.NodesArtifact{
		Nodes:   []model.NodeRecord{{NodeName: "ТП-1", Period: "2022-Q1", DataType: model.DataTypeConsumption}},
		Summary: model.NodesSummary{TotalNodes: 1},
	})
	writeArtifact(t, s, "v1", artifacts.KindEnvelope, map[string]any{"buildings": []any{}})

	v := NewValidator(staticUploads(
		upload(1, "e1", "electro.xlsx", model.TagElectricity, model.UploadSuccess),
		upload(2, "g1", "gaz.xlsx", model.TagGas, model.UploadSuccess),
		upload(3, "n1", "узлы учета.xlsx", model.TagNodes, model.UploadSuccess),
		upload(4, "v1", "ограждающие.xlsx", model.TagEnvelope, model.UploadSuccess),
		upload(5, "w1", "water.xlsx", model.TagWater, model.UploadFailed),
	), s, nil, nil)

	res := v.Validate(context.Background(), 1)
	require.True(t, res.Ready, "warnings: %v", res.Warnings)
	require.Empty(t, res.MissingResources)
	require.Equal(t, 0.75, res.CompletenessScore)
	require.Equal(t, 75, res.ProgressPercentage)
	require.Equal(t, []string{"electricity", "envelope", "gas", "nodes"}, res.AvailableResources)
	require.NotContains(t, res.AvailableFiles, "water.xlsx")
	require.Equal(t, []string{"all required data uploaded"}, res.Warnings)
	require.True(t, res.SheetValidation[SheetStructure].Valid)
	require.True(t, res.SheetValidation[SheetNodes].Valid)
	require.Equal(t, 4, res.RequiredResourcesStatus["electricity"].QuartersCount)
	require.True(t, res.RequiredResourcesStatus["gas"].HasEnoughQuarters)
	require.False(t, res.OptionalResourcesStatus["water"].Available)
}

func TestValidateUsageOnlyElectricity(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	writeArtifact(t, s, "u1", artifacts.KindUsage, artifacts.UsageArtifact{Years: map[int]map[string]float64{
		2023: {"technological": 600, "household": 200, "production": 200},
	}})

	res := NewValidator(staticUploads(
		upload(1, "u1", "report.xlsx", model.TagOther, model.UploadSuccess),
	), s, nil, nil).Validate(context.Background(), 1)

	require.False(t, res.Ready)
	require.Equal(t, []string{"gas", "envelope", "nodes"}, res.MissingResources)
	require.Equal(t, []string{"gaz", "ograjdayuschie", "uzly_ucheta"}, res.MissingFiles)
	require.Equal(t, 4, res.RequiredResourcesStatus["electricity"].QuartersCount)
	require.False(t, res.SheetValidation[SheetStructure].Valid)
	require.Equal(t, []string{
		"Struktura pr2: electricity.reactive_kvarh: 0 of 4 quarters",
		"Struktura pr2: gas.volume_m3: 0 of 4 quarters",
		"01_Узлы учета: metering nodes: 0 of 1",
	}, res.MissingSheetData)
	require.Contains(t, res.Warnings, "files to upload: gaz, ograjdayuschie, uzly_ucheta")
}

func TestValidateRecoversInternalErrors(t *testing.T) {
	t.Parallel()

	failing := uploadsFunc(func(context.Context, int64) ([]model.Upload, error) {
		return nil, errors.New("database is locked")
	})
	res := NewValidator(failing, newStore(t), nil, nil).Validate(context.Background(), 1)
	require.False(t, res.Ready)
	require.Contains(t, res.Warnings[0], "database is locked")

	panicking := uploadsFunc(func(context.Context, int64) ([]model.Upload, error) {
		panic("boom")
	})
	res = NewValidator(panicking, newStore(t), nil, nil).Validate(context.Background(), 1)
	require.False(t, res.Ready)
	require.Equal(t, 0.0, res.CompletenessScore)
	require.Contains(t, res.Warnings[0], "boom")
}

func TestChecklist(t *testing.T) {
	t.Parallel()

	v := NewValidator(staticUploads(
		upload(1, "e1", "electro.xlsx", "", model.UploadSuccess),
		upload(2, "g1", "gaz.xlsx", "", model.UploadFailed),
	), newStore(t), nil, nil)

	cl, err := v.Checklist(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"electro.xlsx"}, cl.UploadedFiles)
	require.Equal(t, []string{"gas", "envelope", "nodes"}, cl.MissingRequired)
	require.Len(t, cl.RequiredFiles, 4)
	require.True(t, cl.RequiredFiles[0].Uploaded)
	require.Equal(t, 4, *cl.RequiredFiles[0].MinQuarters)
	require.Nil(t, cl.RequiredFiles[3].MinQuarters)
	require.Len(t, cl.OptionalFiles, 5)
}

func TestAggregateSavesEnterpriseDataset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	writeArtifact(t, s, "e1", artifacts.KindAggregated, quarters(model.ResourceElectricity, model.FieldActiveKWh))
	writeArtifact(t, s, "u1", artifacts.KindUsage, artifacts.UsageArtifact{Years: map[int]map[string]float64{
		2022: {"technological": 300, "household": 100},
	}})

	v := NewValidator(staticUploads(
		upload(1, "e1", "electro.xlsx", model.TagElectricity, model.UploadSuccess),
		upload(2, "u1", "usage.xlsx", model.TagOther, model.UploadSuccess),
		upload(3, "x1", "broken.xlsx", model.TagGas, model.UploadFailed),
	), s, nil, nil)

	agg, err := v.Aggregate(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), agg.EnterpriseID)
	require.Equal(t, DistributionUsage, agg.Distribution)
	require.Equal(t, []int64{1}, agg.Report.Merged, "usage upload has no aggregated artifact")
	require.Len(t, agg.Report.Skipped, 1)
	q1 := agg.Dataset.Resources[model.ResourceElectricity]["2022-Q1"]
	require.Equal(t, map[string]float64{"technological": 75, "household": 25}, q1.ByUsage)

	var saved EnterpriseAggregate
	require.NoError(t, s.ReadJSON(ctx, artifacts.EnterpriseName(7), &saved))
	require.Equal(t, "enterprise_7_aggregated.json", artifacts.EnterpriseName(7))
	require.Equal(t, agg.Dataset.Resources[model.ResourceElectricity]["2022-Q4"].ByUsage,
		saved.Dataset.Resources[model.ResourceElectricity]["2022-Q4"].ByUsage)
}

func TestAggregateStandardShares(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	writeArtifact(t, s, "e1", artifacts.KindAggregated, quarters(model.ResourceElectricity, model.FieldActiveKWh))

	agg, err := NewValidator(staticUploads(
		upload(1, "e1", "electro.xlsx", model.TagElectricity, model.UploadSuccess),
	), s, nil, nil).Aggregate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, DistributionStandard, agg.Distribution)
	require.NotEmpty(t, agg.Dataset.Resources[model.ResourceElectricity]["2022-Q1"].ByUsage)
}

func TestAggregateListError(t *testing.T) {
	t.Parallel()

	failing := uploadsFunc(func(context.Context, int64) ([]model.Upload, error) { return nil, errors.New("db closed") })
	_, err := NewValidator(failing, newStore(t), nil, nil).Aggregate(context.Background(), 1)
	require.ErrorContains(t, err, "db closed")
}

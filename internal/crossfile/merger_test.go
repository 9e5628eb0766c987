package crossfile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"energypassport/internal/aggregator"
	"energypassport/internal/model"
)

type mapLoader map[string]*model.AggregatedDataset

func (m mapLoader) LoadAggregated(_ context.Context, u model.Upload) (*model.AggregatedDataset, error) {
	ds, ok := m[u.BatchID]
	if !ok {
		return nil, errors.New("open " + u.BatchID + "_aggregated.json: no such file")
	}
	return ds, nil
}

func dataset(key string, year, quarter int, months map[string]float64, missing ...string) *model.AggregatedDataset {
	ds := model.NewAggregatedDataset(key)
	rec := ds.Quarter(model.ResourceElectricity, year, quarter, key)
	total := 0.0
	for label, v := range months {
		rec.Months = append(rec.Months, model.MonthEntry{
			Month:  label,
			Values: map[string]*float64{model.FieldActiveKWh: model.Float(v)},
		})
		total += v
	}
	rec.QuarterTotals[model.FieldActiveKWh] = total
	ds.MissingSheets = missing
	return ds
}

func upload(id int64, batch string, at time.Time) model.Upload {
	return model.Upload{ID: id, BatchID: batch, Filename: batch + ".xlsx", Status: model.UploadSuccess, CreatedAt: at}
}

func TestMergeConcatenatesMonths(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := dataset("2022-Q1", 2022, 1, map[string]float64{"Январь": 1000}, "ГАЗ", "СУВ")
	b := dataset("2022-Q1", 2022, 1, map[string]float64{"Февраль": 1100, "Март": 1200}, "СУВ")
	b.Quarter(model.ResourceElectricity, 2022, 1, "2022-Q1").ByUsage = map[string]float64{"technological": 1}
	loader := mapLoader{"a": a, "b": b}

	out, report := Merge(context.Background(), loader, []model.Upload{
		upload(2, "b", base.Add(time.Hour)),
		upload(1, "a", base),
	})

	rec := out.Resources[model.ResourceElectricity]["2022-Q1"]
	require.Len(t, rec.Months, 3)
	require.Equal(t, "Январь", rec.Months[0].Month)
	require.Equal(t, 3300.0, rec.QuarterTotals[model.FieldActiveKWh])
	require.Equal(t, map[string]float64{"technological": 1}, rec.ByUsage)
	require.Equal(t, []int64{1, 2}, report.Merged)
	require.Equal(t, 1, report.Quarters)
	require.Equal(t, []string{"СУВ"}, out.MissingSheets)

	require.Len(t, a.Resources[model.ResourceElectricity]["2022-Q1"].Months, 1, "inputs must not be mutated")
}

func TestMergeMissingSheetsWithSingleResourceUpload(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	book := dataset("2022-Q1", 2022, 1, map[string]float64{"Январь": 10}, "Килограмм да", "ГАЗ", "СУВ")
	book.CheckedSheets = aggregator.SheetFamilies()
	gas := model.NewAggregatedDataset("газ.xlsx")
	gas.Quarter(model.ResourceGas, 2022, 1, "2022-Q1").QuarterTotals[model.FieldVolumeM3] = 50
	gas.CheckedSheets = []string{"ГАЗ"}

	for _, order := range [][]model.Upload{
		{upload(1, "book", base), upload(2, "gas", base.Add(time.Minute))},
		{upload(1, "gas", base), upload(2, "book", base.Add(time.Minute))},
	} {
		out, _ := Merge(context.Background(), mapLoader{"book": book, "gas": gas}, order)
		require.Equal(t, []string{"Килограмм да", "СУВ"}, out.MissingSheets)
	}
}

func TestMergeOrderIndependentTotals(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := mapLoader{
		"a": dataset("2023-Q2", 2023, 2, map[string]float64{"Апрель": 5}),
		"b": dataset("2023-Q2", 2023, 2, map[string]float64{"Май": 7}),
		"c": dataset("2023-Q3", 2023, 3, map[string]float64{"Июль": 11}),
	}
	forward, _ := Merge(context.Background(), loader, []model.Upload{
		upload(1, "a", base), upload(2, "b", base.Add(time.Minute)), upload(3, "c", base.Add(2*time.Minute)),
	})
	backward, _ := Merge(context.Background(), loader, []model.Upload{
		upload(1, "c", base), upload(2, "b", base.Add(time.Minute)), upload(3, "a", base.Add(2*time.Minute)),
	})

	for _, key := range []string{"2023-Q2", "2023-Q3"} {
		require.Equal(t,
			forward.Resources[model.ResourceElectricity][key].QuarterTotals,
			backward.Resources[model.ResourceElectricity][key].QuarterTotals, key)
	}
	require.Equal(t, 12.0, forward.Resources[model.ResourceElectricity]["2023-Q2"].QuarterTotals[model.FieldActiveKWh])
}

func TestMergeSkipsUnreadableAndUnsuccessful(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	failed := upload(3, "a", base)
	failed.Status = model.UploadFailed
	loader := mapLoader{"a": dataset("2022-Q1", 2022, 1, map[string]float64{"Январь": 10})}

	out, report := Merge(context.Background(), loader, []model.Upload{
		upload(1, "a", base),
		upload(2, "missing", base.Add(time.Second)),
		failed,
	})

	require.Equal(t, []int64{1}, report.Merged)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, int64(2), report.Skipped[0].UploadID)
	require.Equal(t, 10.0, out.Resources[model.ResourceElectricity]["2022-Q1"].QuarterTotals[model.FieldActiveKWh])
}

func TestMergeNeverRegressesByUsage(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := model.NewAggregatedDataset("first")
	synth := first.Quarter(model.ResourceElectricity, 2023, 1, "2023-Q1")
	synth.QuarterTotals[model.FieldActiveKWh] = 250
	synth.ByUsage = map[string]float64{"technological": 250}

	second := model.NewAggregatedDataset("second")
	second.Quarter(model.ResourceElectricity, 2023, 1, "2023-Q1").QuarterTotals = map[string]float64{}

	out, _ := Merge(context.Background(), mapLoader{"first": first, "second": second}, []model.Upload{
		upload(1, "first", base), upload(2, "second", base.Add(time.Second)),
	})

	rec := out.Resources[model.ResourceElectricity]["2023-Q1"]
	require.Equal(t, map[string]float64{"technological": 250}, rec.ByUsage)
	require.Equal(t, 250.0, rec.QuarterTotals[model.FieldActiveKWh], "monthless quarter keeps its totals")
}

func TestMergeCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, report := Merge(ctx, mapLoader{}, []model.Upload{upload(1, "a", time.Now())})
	require.Empty(t, out.Resources)
	require.Len(t, report.Skipped, 1)
}

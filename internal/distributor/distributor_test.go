package distributor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"energypassport/internal/model"
)

func TestDistributeSynthesizesEmptyResource(t *testing.T) {
	t.Parallel()

	yearly := map[int]map[string]float64{
		2023: {"technological": 600, "household": 200, "production": 200},
	}
	ds := model.NewAggregatedDataset("merged")
	out := Distribute(ds, yearly, model.ResourceElectricity)

	elec := out.Resources[model.ResourceElectricity]
	require.Len(t, elec, 4)
	for _, key := range []string{"2023-Q1", "2023-Q2", "2023-Q3", "2023-Q4"} {
		rec := elec[key]
		require.NotNil(t, rec, key)
		require.Equal(t, 250.0, rec.QuarterTotals[model.FieldActiveKWh], key)
		require.Equal(t, map[string]float64{"technological": 150, "household": 50, "production": 50}, rec.ByUsage, key)
		require.Empty(t, rec.Months, key)
	}
	require.Empty(t, ds.Resources, "input must not be mutated")
}

func TestDistributeProportional(t *testing.T) {
	t.Parallel()

	ds := model.NewAggregatedDataset("merged")
	ds.Quarter(model.ResourceElectricity, 2023, 1, "2023-Q1").QuarterTotals[model.FieldActiveKWh] = 400
	ds.Quarter(model.ResourceElectricity, 2023, 2, "2023-Q2").QuarterTotals[model.FieldActiveKWh] = 0
	kept := ds.Quarter(model.ResourceElectricity, 2023, 3, "2023-Q3")
	kept.QuarterTotals[model.FieldActiveKWh] = 100
	kept.ByUsage = map[string]float64{"household": 100}
	ds.Quarter(model.ResourceElectricity, 2022, 4, "2022-Q4").QuarterTotals[model.FieldActiveKWh] = 100

	yearly := map[int]map[string]float64{
		2023: {"technological": 750, "household": 250},
		2022: {"technological": 0},
	}
	out := Distribute(ds, yearly, model.ResourceElectricity)
	elec := out.Resources[model.ResourceElectricity]

	require.Equal(t, map[string]float64{"technological": 300, "household": 100}, elec["2023-Q1"].ByUsage)
	require.Nil(t, elec["2023-Q2"].ByUsage, "zero quarter total is skipped")
	require.Equal(t, map[string]float64{"household": 100}, elec["2023-Q3"].ByUsage)
	require.Nil(t, elec["2022-Q4"].ByUsage, "zero yearly total is skipped")

	again := Distribute(out, yearly, model.ResourceElectricity)
	require.Equal(t, out.Resources, again.Resources)
}

func TestDistributeWithoutCategoriesReturnsCopy(t *testing.T) {
	t.Parallel()

	ds := model.NewAggregatedDataset("merged")
	ds.Quarter(model.ResourceElectricity, 2023, 1, "2023-Q1").QuarterTotals[model.FieldActiveKWh] = 400

	out := Distribute(ds, nil, model.ResourceElectricity)
	require.NotSame(t, ds, out)
	require.Equal(t, ds.Resources, out.Resources)
	require.NotNil(t, Distribute(nil, nil, model.ResourceElectricity))
}

func TestDistributeStandard(t *testing.T) {
	t.Parallel()

	ds := model.NewAggregatedDataset("merged")
	ds.Quarter(model.ResourceElectricity, 2023, 1, "2023-Q1").QuarterTotals[model.FieldActiveKWh] = 1234

	out := DistributeStandard(ds, model.ResourceElectricity)
	got := out.Resources[model.ResourceElectricity]["2023-Q1"].ByUsage
	require.Equal(t, 617.0, got["technological"])
	require.Equal(t, 370.2, got["production"])
	require.Equal(t, 185.1, got["own_needs"])
	require.Equal(t, 61.7, got["household"])
}

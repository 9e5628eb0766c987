package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"energypassport/internal/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "aggregated")
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	ds := model.NewAggregatedDataset("energy.xlsx")
	ds.Quarter(model.ResourceElectricity, 2022, 1, "2022-Q1").QuarterTotals[model.FieldActiveKWh] = 3300
	name := Name("b1", KindAggregated)
	require.Equal(t, "b1_aggregated.json", name)
	require.NoError(t, s.WriteJSON(ctx, name, ds))

	ok, err := s.Exists(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	if _, err := os.Stat(filepath.Join(dir, name+".tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	loaded, err := Loader{Store: s}.LoadAggregated(ctx, model.Upload{BatchID: "b1"})
	require.NoError(t, err)
	require.Equal(t, 3300.0, loaded.Resources[model.ResourceElectricity]["2022-Q1"].QuarterTotals[model.FieldActiveKWh])
}

func TestFileStoreMissingAndRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	var out map[string]any
	require.ErrorIs(t, s.ReadJSON(ctx, Name("nope", KindNodes), &out), ErrNotFound)

	ok, err := s.Exists(ctx, Name("nope", KindNodes))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.WriteJSON(ctx, Name("b2", KindNodes), model.NodesArtifact{}))
	require.NoError(t, s.WriteJSON(ctx, Name("b2", KindUsage), UsageArtifact{Years: map[int]map[string]float64{2023: {"technological": 1}}}))
	require.NoError(t, RemoveBatch(ctx, s, "b2"))

	ok, err = s.Exists(ctx, Name("b2", KindNodes))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreRejectsPaths(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.Error(t, s.WriteJSON(context.Background(), "../escape.json", 1))
	require.Error(t, s.WriteJSON(context.Background(), "", 1))
}

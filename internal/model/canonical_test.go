package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func populatedCanonical() CanonicalSourceData {
	annual := 15600.0
	power := 75.5
	u := 0.45
	return CanonicalSourceData{
		Resources: []ResourceEntry{
			{
				Resource: ResourceElectricity,
				Category: "consumption",
				Name:     "ЭЛЕКТР",
				Series: TimeSeries{
					Monthly:   map[string]float64{"01": 1000, "02": 1100.5},
					Quarterly: map[string]float64{"Q1": 3300},
					Annual:    &annual,
					Unit:      "kWh",
				},
				Metadata: map[string]any{"source": "sheet"},
			},
		},
		Equipment: []EquipmentItem{{Name: "Компрессор", NominalPowerKW: &power, Extra: map[string]any{"shop": "1"}}},
		Nodes:     []NodeItem{{NodeID: "ТП-1", Location: "цех 2", Resource: ResourceElectricity}},
		Envelope:  []EnvelopeItem{{Element: "стены", Material: "кирпич", UValue: &u}},
		Provenance: map[string]ProvenanceEntry{
			"ЭЛЕКТР:series": {
				Sheet:       "ЭЛЕКТР",
				HeaderCells: []string{"A1"},
				DataCells:   []string{"B2:B13"},
				Confidence:  0.7,
				Notes:       "monthly series",
			},
		},
	}
}

func TestCanonicalSourceDataRoundTrip(t *testing.T) {
	t.Parallel()

	in := populatedCanonical()
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out CanonicalSourceData
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
	require.NotEmpty(t, out.Provenance)
}

func TestCanonicalJSONKeys(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(populatedCanonical())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"resources", "equipment", "nodes", "envelope", "provenance"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing top-level key %q in %s", key, data)
		}
	}
}

func TestSanitizeDropsInvalidEntries(t *testing.T) {
	t.Parallel()

	in := CanonicalSourceData{
		Resources: []ResourceEntry{
			{Resource: "Electricity", Series: TimeSeries{Monthly: map[string]float64{"1": 5, "13": 9}}},
			{Resource: "plutonium"},
		},
		Nodes:    []NodeItem{{}},
		Envelope: []EnvelopeItem{{Material: "бетон"}},
	}

	out, issues := in.Sanitize()
	require.Len(t, out.Resources, 1)
	require.Equal(t, ResourceElectricity, out.Resources[0].Resource)
	require.Equal(t, map[string]float64{"01": 5}, out.Resources[0].Series.Monthly)
	require.Empty(t, out.Nodes)
	require.Len(t, out.Envelope, 1)
	require.Len(t, issues, 3)
}

package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"energypassport/internal/model"
)

type textClient struct {
	text   string
	err    error
	prompt string
	calls  int
}

func (c *textClient) Generate(_ context.Context, prompt string, _ float64, _ int) (string, error) {
	c.calls++
	c.prompt = prompt
	return c.text, c.err
}

type jsonClient struct {
	textClient
	obj       map[string]any
	maxTokens int
}

func (c *jsonClient) GenerateJSON(_ context.Context, prompt string, _ float64, maxTokens int) (map[string]any, error) {
	c.calls++
	c.prompt = prompt
	c.maxTokens = maxTokens
	return c.obj, c.err
}

func electricityRows() [][]string {
	return [][]string{
		{"Январь", "1000"},
		{"Февраль", "1100"},
		{"Март", "1,200"},
		{"Апрель", "1300"},
		{"Май", "1400"},
	}
}

func enabledSettings() Settings {
	s := DefaultSettings()
	s.AIEnabled = true
	return s
}

func TestAnalyzeSheetMonthlySeriesWithoutYear(t *testing.T) {
	t.Parallel()

	client := &textClient{}
	a := NewAnalyzer(client, enabledSettings())
	res := a.AnalyzeSheet(context.Background(), SheetInput{SheetName: "ЭЛЕКТР", SampleRows: electricityRows()})

	require.Equal(t, 0.7, res.Confidence)
	require.False(t, res.UsedAI)
	require.Zero(t, client.calls, "confident deterministic result must not call the LLM")
	require.Equal(t, []string{
		"deterministic: monthly series recognized",
		"deterministic: year not found",
		"mode:assist",
		"ai:skipped_high_conf",
	}, res.Notes)

	require.Len(t, res.Partial.Resources, 1)
	entry := res.Partial.Resources[0]
	require.Equal(t, model.ResourceElectricity, entry.Resource)
	require.Equal(t, "consumption", entry.Category)
	require.Len(t, entry.Series.Monthly, 5)
	require.Equal(t, 1200.0, entry.Series.Monthly["03"])
	require.Contains(t, res.Partial.Provenance, "ЭЛЕКТР:series")
}

func TestAnalyzeSheetYearPresent(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(nil, DefaultSettings())
	res := a.AnalyzeSheet(context.Background(), SheetInput{
		SheetName:  "ЭЛЕКТР",
		HeaderRows: [][]string{{"", "2022"}},
		SampleRows: electricityRows(),
	})
	require.NotContains(t, res.Notes, "deterministic: year not found")
}

func TestAnalyzeSheetDeterministicLevels(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	s.Mode = ModeOff
	a := NewAnalyzer(nil, s)

	cases := []struct {
		sheet string
		rows  [][]string
		conf  float64
	}{
		{"ГАЗ", [][]string{{"Январь", "1"}}, 0.2},
		{"Узлы учета", nil, 0.6},
		{"Оборудование", nil, 0.6},
		{"Ограждающие", nil, 0.6},
		{"Лист1", electricityRows(), 0.1},
	}
	for _, tc := range cases {
		res := a.AnalyzeSheet(context.Background(), SheetInput{SheetName: tc.sheet, SampleRows: tc.rows})
		if res.Confidence != tc.conf {
			t.Fatalf("sheet %q confidence = %v, want %v", tc.sheet, res.Confidence, tc.conf)
		}
		if res.Notes[len(res.Notes)-1] != "mode:off" {
			t.Fatalf("sheet %q notes = %v", tc.sheet, res.Notes)
		}
	}
}

func TestAnalyzeSheetAIFailuresDegrade(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		client   LLMClient
		settings Settings
		note     string
	}{
		{"disabled", &textClient{}, DefaultSettings(), "AI disabled"},
		{"no provider", nil, enabledSettings(), "AI misconfigured (no API key/provider)"},
		{"non json", &textClient{text: "Sure! Here is the mapping."}, enabledSettings(), "AI returned non-JSON text"},
		{"network", &textClient{err: errors.New("dial tcp: timeout")}, enabledSettings(), "AI error: dial tcp: timeout"},
		{"provider error", &textClient{err: ErrNoProvider}, enabledSettings(), "AI misconfigured (no API key/provider)"},
	}
	for _, tc := range cases {
		a := NewAnalyzer(tc.client, tc.settings)
		res := a.AnalyzeSheet(context.Background(), SheetInput{SheetName: "Лист1"})
		require.Contains(t, res.Notes, tc.note, tc.name)
		require.Contains(t, res.Notes, "ai_conf=0.00", tc.name)
		require.Contains(t, res.Notes, "det_conf=0.10", tc.name)
		require.False(t, res.UsedAI, tc.name)
		require.Equal(t, 0.1, res.Confidence, tc.name)
	}
}

func TestAnalyzeSheetUsesTextLLM(t *testing.T) {
	t.Parallel()

	payload := model.CanonicalSourceData{
		Resources: []model.ResourceEntry{{
			Resource: model.ResourceGas,
			Name:     "газ",
			Series:   model.TimeSeries{Monthly: map[string]float64{"01": 10}},
		}},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	client := &textClient{text: "```json\n" + string(data) + "\n```"}
	a := NewAnalyzer(client, enabledSettings())
	res := a.AnalyzeSheet(context.Background(), SheetInput{
		SheetName:  "Лист1",
		HeaderRows: [][]string{strings.Split("a,b,c,d,e,f,g,h,i,j,k,l,m,n", ",")},
	})

	require.Equal(t, 1, client.calls)
	require.True(t, res.UsedAI)
	require.Equal(t, 0.75, res.Confidence)
	require.Contains(t, res.Notes, "LLM mapping used")
	require.Len(t, res.Partial.Resources, 1)

	var sent promptPayload
	require.NoError(t, json.Unmarshal([]byte(client.prompt), &sent))
	require.Equal(t, "JSON only", sent.Return)
	require.Len(t, sent.HeaderRows[0], 12)
	require.NotEmpty(t, sent.SchemaSummary)
}

func TestAnalyzeSheetPrefersJSONGenerator(t *testing.T) {
	t.Parallel()

	client := &jsonClient{obj: map[string]any{"resources": []any{}}}
	a := NewAnalyzer(client, enabledSettings())
	res := a.AnalyzeSheet(context.Background(), SheetInput{SheetName: "Лист1"})

	require.Equal(t, 1, client.calls)
	require.Equal(t, enabledSettings().MaxTokens, client.maxTokens)
	require.Contains(t, res.Notes, "LLM mapping empty")
	require.Contains(t, res.Notes, "ai_conf=0.30")
	require.False(t, res.UsedAI)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	require.Equal(t, ModeOff, ParseMode("OFF"))
	require.Equal(t, ModeStrict, ParseMode("strict"))
	require.Equal(t, ModeAssist, ParseMode(""))
	require.Equal(t, ModeAssist, ParseMode("turbo"))
}

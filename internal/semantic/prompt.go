package semantic

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"

	"energypassport/internal/model"
)

// Prompt bounds
const (
	maxHeaderRows = 3
	maxSampleRows = 10
	maxPromptCols = 12
)

var (
	schemaOnce    sync.Once
	schemaSummary string
)

// SchemaSummary compact JSON schema of CanonicalSourceData
func SchemaSummary() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		data, err := json.Marshal(reflector.Reflect(&model.CanonicalSourceData{}))
		if err != nil {
			schemaSummary = "{}"
			return
		}
		schemaSummary = string(data)
	})
	return schemaSummary
}

type outputFormat struct {
	Resources  string `json:"resources"`
	Equipment  string `json:"equipment"`
	Nodes      string `json:"nodes"`
	Envelope   string `json:"envelope"`
	Provenance string `json:"provenance"`
}

type promptPayload struct {
	Task                string         `json:"task"`
	SchemaSummary       string         `json:"schema_summary"`
	SheetName           string         `json:"sheet_name"`
	LanguageHints       []string       `json:"language_hints"`
	HeaderRows          [][]string     `json:"header_rows"`
	SampleRows          [][]string     `json:"sample_rows"`
	CurrentMappingRules map[string]any `json:"current_mapping_rules"`
	OutputFormat        outputFormat   `json:"output_format"`
	Return              string         `json:"return"`
}

// BuildPrompt user payload for the mapping request, trimmed to the prompt bounds
func BuildPrompt(in SheetInput) (string, error) {
	hints := in.LanguageHints
	if hints == nil {
		hints = []string{}
	}
	rules := in.CurrentMappingRules
	if rules == nil {
		rules = map[string]any{}
	}
	payload := promptPayload{
		Task:                "Map noisy Excel-like table to CanonicalSourceData JSON (no extra text).",
		SchemaSummary:       SchemaSummary(),
		SheetName:           in.SheetName,
		LanguageHints:       hints,
		HeaderRows:          trimMatrix(in.HeaderRows, maxHeaderRows, maxPromptCols),
		SampleRows:          trimMatrix(in.SampleRows, maxSampleRows, maxPromptCols),
		CurrentMappingRules: rules,
		OutputFormat: outputFormat{
			Resources:  "array",
			Equipment:  "array",
			Nodes:      "array",
			Envelope:   "array",
			Provenance: "object",
		},
		Return: "JSON only",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func trimMatrix(rows [][]string, maxRows, maxCols int) [][]string {
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		if len(r) > maxCols {
			r = r[:maxCols]
		}
		out = append(out, append([]string{}, r...))
	}
	return out
}

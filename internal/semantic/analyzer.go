package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"energypassport/internal/merge"
	"energypassport/internal/metrics"
	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// Mode AI-assist gating mode
type Mode string

const (
	ModeOff    Mode = "off"
	ModeAssist Mode = "assist"
	ModeStrict Mode = "strict"
)

// ParseMode unknown values fall back to assist
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOff:
		return ModeOff
	case ModeStrict:
		return ModeStrict
	default:
		return ModeAssist
	}
}

// Deterministic confidence levels
const (
	confSeries    = 0.7
	confNoSeries  = 0.2
	confDelegated = 0.6
	confUnknown   = 0.1
	confAIUsed    = 0.75
	confAIEmpty   = 0.3
	minMonthRows  = 5
	defaultAICall = 0.6
	defaultTokens = 1200
	defaultAITemp = 0.1
)

// Settings analyzer configuration
type Settings struct {
	AIEnabled        bool
	Mode             Mode
	MinConfForAICall float64
	Temperature      float64
	MaxTokens        int
	Thresholds       merge.Thresholds
}

// DefaultSettings AI disabled, assist mode, stock thresholds
func DefaultSettings() Settings {
	return Settings{
		Mode:             ModeAssist,
		MinConfForAICall: defaultAICall,
		Temperature:      defaultAITemp,
		MaxTokens:        defaultTokens,
		Thresholds:       merge.DefaultThresholds(),
	}
}

// SheetInput one sheet to analyze
type SheetInput struct {
	SheetName           string
	HeaderRows          [][]string
	SampleRows          [][]string
	LanguageHints       []string
	CurrentMappingRules map[string]any
}

// Analyzer maps a sheet onto canonical data, optionally assisted by an LLM
type Analyzer struct {
	client   LLMClient
	settings Settings
}

// NewAnalyzer nil client is replaced by NoopClient
func NewAnalyzer(client LLMClient, s Settings) *Analyzer {
	if client == nil {
		client = NoopClient{}
	}
	if s.Mode == "" {
		s.Mode = ModeAssist
	}
	if s.Thresholds == (merge.Thresholds{}) {
		s.Thresholds = merge.DefaultThresholds()
	}
	return &Analyzer{client: client, settings: s}
}

// AnalyzeSheet always returns a populated result; failures become notes
func (a *Analyzer) AnalyzeSheet(ctx context.Context, in SheetInput) (res model.AnalyzeSheetResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[semantic] recovered while analyzing sheet %q: %v", in.SheetName, r)
			res = model.AnalyzeSheetResult{
				Partial: model.NewCanonicalSourceData(),
				Notes:   []string{fmt.Sprintf("analysis error: %v", r)},
			}
		}
	}()

	det, detConf, notes := analyzeDeterministic(in)
	mode := a.settings.Mode

	if mode == ModeOff {
		return model.AnalyzeSheetResult{
			Partial:    det,
			Confidence: detConf,
			Notes:      append(notes, "mode:"+string(mode)),
		}
	}
	if detConf >= a.settings.MinConfForAICall {
		return model.AnalyzeSheetResult{
			Partial:    det,
			Confidence: detConf,
			Notes:      append(notes, "mode:"+string(mode), "ai:skipped_high_conf"),
		}
	}

	log.Printf("[semantic] AI mapping attempt sheet=%q mode=%s conf=%.2f", in.SheetName, mode, detConf)
	ai, aiConf, aiNotes := a.callLLM(ctx, in)
	merged := merge.Merge(det, ai, detConf, aiConf, a.settings.Thresholds)
	merged.Notes = append(append(notes, aiNotes...),
		"mode:"+string(mode),
		fmt.Sprintf("det_conf=%.2f", detConf),
		fmt.Sprintf("ai_conf=%.2f", aiConf),
	)
	log.Printf("[semantic] AI mapping result sheet=%q used_ai=%v det_conf=%.2f ai_conf=%.2f",
		in.SheetName, merged.UsedAI, detConf, aiConf)
	return merged
}

// callLLM never fails; any problem degrades to an empty result and a note
func (a *Analyzer) callLLM(ctx context.Context, in SheetInput) (model.CanonicalSourceData, float64, []string) {
	data, conf, notes := a.mapWithLLM(ctx, in)
	metrics.IncAIMapping(mappingOutcome(notes))
	return data, conf, notes
}

func (a *Analyzer) mapWithLLM(ctx context.Context, in SheetInput) (model.CanonicalSourceData, float64, []string) {
	empty := model.NewCanonicalSourceData()
	if !a.settings.AIEnabled {
		return empty, 0, []string{"AI disabled"}
	}
	if _, isNoop := a.client.(NoopClient); isNoop {
		return empty, 0, []string{"AI misconfigured (no API key/provider)"}
	}

	prompt, err := BuildPrompt(in)
	if err != nil {
		return empty, 0, []string{"AI error: " + err.Error()}
	}

	var raw []byte
	if jg, ok := a.client.(JSONGenerator); ok {
		obj, err := jg.GenerateJSON(ctx, prompt, a.settings.Temperature, a.settings.MaxTokens)
		if err != nil {
			return empty, 0, []string{aiErrorNote(err)}
		}
		if raw, err = json.Marshal(obj); err != nil {
			return empty, 0, []string{"AI error: " + err.Error()}
		}
	} else {
		text, err := a.client.Generate(ctx, prompt, a.settings.Temperature, a.settings.MaxTokens)
		if err != nil {
			return empty, 0, []string{aiErrorNote(err)}
		}
		raw = []byte(stripCodeFence(text))
		if !json.Valid(raw) {
			log.Printf("[semantic] LLM returned non-JSON text for sheet=%q", in.SheetName)
			return empty, 0, []string{"AI returned non-JSON text"}
		}
	}

	var data model.CanonicalSourceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return empty, 0, []string{"AI error: " + err.Error()}
	}
	data, issues := data.Sanitize()
	for _, issue := range issues {
		log.Printf("[semantic] dropped AI entry for sheet=%q: %s", in.SheetName, issue)
	}
	if data.HasAnySection() {
		return data, confAIUsed, []string{"LLM mapping used"}
	}
	return data, confAIEmpty, []string{"LLM mapping empty"}
}

// mappingOutcome metric label derived from the first LLM note
func mappingOutcome(notes []string) string {
	if len(notes) == 0 {
		return "unknown"
	}
	switch n := notes[0]; {
	case n == "AI disabled":
		return "disabled"
	case strings.HasPrefix(n, "AI misconfigured"):
		return "misconfigured"
	case n == "AI returned non-JSON text":
		return "non_json"
	case n == "LLM mapping used":
		return "used"
	case n == "LLM mapping empty":
		return "empty"
	default:
		return "error"
	}
}

func aiErrorNote(err error) string {
	if errors.Is(err, ErrNoProvider) {
		return "AI misconfigured (no API key/provider)"
	}
	return "AI error: " + err.Error()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DetectResource resource kind implied by a sheet name, "" when unknown
func DetectResource(sheetName string) string {
	name := parser.NormalizeText(sheetName)
	switch {
	case parser.ContainsAny(name, []string{"электр", "electr", "тп"}):
		return model.ResourceElectricity
	case parser.ContainsAny(name, []string{"газ", "gas"}):
		return model.ResourceGas
	case parser.ContainsAny(name, []string{"сув", "water", "вода"}):
		return model.ResourceWater
	case parser.ContainsAny(name, []string{"тепл", "heat", "отоплен", "kotel"}):
		return model.ResourceHeat
	case parser.ContainsAny(name, []string{"уголь", "coal"}):
		return model.ResourceCoal
	case parser.ContainsAny(name, []string{"мазут", "fuel", "топливо"}):
		return model.ResourceFuel
	case parser.ContainsAny(name, []string{"узел", "узл", "node", "счетч"}):
		return string(model.TagNodes)
	case parser.ContainsAny(name, []string{"оборуд", "equipment"}):
		return string(model.TagEquipment)
	case parser.ContainsAny(name, []string{"ограж", "envelope", "теплопровод"}):
		return string(model.TagEnvelope)
	}
	return ""
}

func analyzeDeterministic(in SheetInput) (model.CanonicalSourceData, float64, []string) {
	res := model.NewCanonicalSourceData()
	kind := DetectResource(in.SheetName)

	switch {
	case model.IsConsumable(kind):
		monthly, ok := monthlySeries(in.SampleRows)
		if !ok {
			return res, confNoSeries, []string{"deterministic: could not recognize monthly series"}
		}
		res.Resources = append(res.Resources, model.ResourceEntry{
			Resource: kind,
			Category: "consumption",
			Name:     in.SheetName,
			Series:   model.TimeSeries{Monthly: monthly},
			Metadata: map[string]any{},
		})
		res.Provenance[in.SheetName+":series"] = model.ProvenanceEntry{
			Sheet:       in.SheetName,
			HeaderCells: []string{},
			DataCells:   []string{},
			Confidence:  confSeries,
			Notes:       "monthly series extracted by row heuristic",
		}
		notes := []string{"deterministic: monthly series recognized"}
		if !hasYear(in.HeaderRows) && !hasYear(in.SampleRows) {
			notes = append(notes, "deterministic: year not found")
		}
		return res, confSeries, notes
	case kind == string(model.TagEquipment), kind == string(model.TagNodes), kind == string(model.TagEnvelope):
		return res, confDelegated, []string{
			fmt.Sprintf("deterministic: %s sheet recognized (detailed parsing delegated)", kind),
		}
	}
	return res, confUnknown, []string{"deterministic: unknown sheet type"}
}

// monthlySeries month label in the first cell, first numeric cell after it
func monthlySeries(rows [][]string) (map[string]float64, bool) {
	monthly := map[string]float64{}
	matches := 0
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		m, ok := parser.MonthFromPrefix(row[0])
		if !ok {
			continue
		}
		for _, cell := range row[1:] {
			if v, ok := parser.ParseNumber(cell); ok {
				monthly[fmt.Sprintf("%02d", m)] = v
				matches++
				break
			}
		}
	}
	return monthly, matches >= minMonthRows
}

func hasYear(rows [][]string) bool {
	for _, row := range rows {
		for _, c := range row {
			if _, ok := parser.YearValue(c); ok {
				return true
			}
			if _, ok := parser.FindYear(c); ok {
				return true
			}
		}
	}
	return false
}

package classifier

import (
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// Content scoring weights
const (
	unitWeight      = 5
	sheetWeight     = 3
	headerWeight    = 2
	textWeight      = 1
	filenameWeight  = 4
	structureWeight = 2

	confidentScore = 5
	minScore       = 2
)

// unitPatterns units strongly tied to a resource. Single-letter units are
// left out since they match almost any cell.
var unitPatterns = map[model.ResourceTag][]string{
	model.TagElectricity: {"квт·ч", "квтч", "квт*ч", "квт/ч", "kwh", "квар·ч", "кварч", "kvarh"},
	model.TagGas:         {"м³", "м3", "куб.м", "кубометр", "m3"},
	model.TagWater:       {"м³", "м3", "хвс", "гвс", "m3"},
	model.TagHeat:        {"гкал", "gcal", "ккал"},
	model.TagFuel:        {"тонн", "т/мес"},
	model.TagCoal:        {"тонн", "т/мес"},
}

var sheetKeywords = map[model.ResourceTag][]string{
	model.TagElectricity: {"электр", "electricity", "энергоресурсы"},
	model.TagGas:         {"газ", "gas"},
	model.TagWater:       {"сув", "вода", "water"},
	model.TagHeat:        {"тепл", "отоплен", "heat"},
	model.TagNodes:       {"узлы", "узел", "nodes", "счетчик", "metering"},
	model.TagEnvelope:    {"ограждающие", "envelope", "конструкции", "теплопроводность", "паспорт здани", "ццр"},
	model.TagEquipment:   {"оборудование", "equipment"},
}

var contentKeywords = map[model.ResourceTag][]string{
	model.TagElectricity: {"электр", "electricity", "электроэнергия", "kwh", "квт", "энергопотребление", "активная", "реактивная"},
	model.TagGas:         {"газ", "gas", "газоснабжение", "природный газ"},
	model.TagWater:       {"вода", "water", "водоснабжение", "сув", "водоотведение"},
	model.TagFuel:        {"мазут", "mazut", "топливо", "fuel", "нефтепродукты"},
	model.TagCoal:        {"уголь", "coal", "ugol"},
	model.TagHeat:        {"отопление", "тепло", "heat", "гкал", "теплоснабжение", "котел"},
	model.TagNodes:       {"узлы учета", "узел учета", "счетчик", "прибор учета", "metering", "показания"},
	model.TagEnvelope:    {"ограждающие", "envelope", "теплопотери", "стены", "окна", "перекрытия", "теплопроводность", "фасад"},
	model.TagEquipment:   {"оборудование", "equipment", "oborudovanie", "агрегаты", "установки"},
}

var timeSeriesIndicators = []string{
	"январь", "февраль", "март", "апрель", "май", "июнь", "июль",
	"август", "сентябрь", "октябрь", "ноябрь", "декабрь",
	"q1", "q2", "q3", "q4", "квартал", "месяц",
}

// scoreOrder fixed tie-break order
var scoreOrder = []model.ResourceTag{
	model.TagElectricity, model.TagGas, model.TagWater, model.TagHeat, model.TagFuel,
	model.TagCoal, model.TagNodes, model.TagEnvelope, model.TagEquipment,
}

type contentVerdict struct {
	Tag   model.ResourceTag
	Score int
}

// scoreContent weighs unit, sheet-name, header and text evidence per tag.
// Returns TagOther with score 0 when nothing reaches the threshold.
func scoreContent(filename string, content *model.RawContent) contentVerdict {
	if content == nil {
		return contentVerdict{Tag: model.TagOther}
	}

	fname := parser.NormalizeText(filename)
	var sheetNames, cells []string
	for _, sh := range content.Sheets {
		if n := parser.NormalizeText(sh.Name); n != "" {
			sheetNames = append(sheetNames, n)
		}
		for _, h := range sh.Headers {
			if s := parser.NormalizeText(h); s != "" {
				cells = append(cells, s)
			}
		}
		for _, row := range sh.SampleRows {
			for _, c := range row {
				if s := parser.NormalizeText(c); s != "" {
					cells = append(cells, s)
				}
			}
		}
	}
	for _, tbl := range content.Tables {
		for _, h := range tbl.Headers {
			if s := parser.NormalizeText(h); s != "" {
				cells = append(cells, s)
			}
		}
	}
	allText := strings.Join(append(append([]string{fname}, sheetNames...), cells...), " ")
	if t := parser.NormalizeText(content.Text); t != "" {
		allText += " " + t
	}

	scores := map[model.ResourceTag]int{}
	for tag, units := range unitPatterns {
		for _, u := range units {
			for _, c := range cells {
				if strings.Contains(c, u) {
					scores[tag] += unitWeight
				}
			}
		}
	}
	for tag, kws := range sheetKeywords {
		for _, kw := range kws {
			if anyContains(sheetNames, kw) {
				scores[tag] += sheetWeight
			}
		}
	}
	for tag, kws := range contentKeywords {
		for _, kw := range kws {
			if anyContains(cells, kw) {
				scores[tag] += headerWeight
			}
			if strings.Contains(allText, kw) {
				scores[tag] += textWeight
			}
			if fname != "" && strings.Contains(fname, kw) {
				scores[tag] += filenameWeight
			}
		}
	}
	if hasTimeSeries(content) {
		for _, tag := range scoreOrder {
			if model.IsConsumable(string(tag)) && scores[tag] > 0 {
				scores[tag] += structureWeight
			}
		}
	}

	best := contentVerdict{Tag: model.TagOther}
	for _, tag := range scoreOrder {
		if scores[tag] > best.Score {
			best = contentVerdict{Tag: tag, Score: scores[tag]}
		}
	}
	threshold := 1
	if best.Score < confidentScore {
		threshold = minScore
	}
	if best.Score < threshold {
		return contentVerdict{Tag: model.TagOther}
	}
	return best
}

func hasTimeSeries(content *model.RawContent) bool {
	for _, sh := range content.Sheets {
		text := parser.NormalizeText(strings.Join(sh.Headers, " "))
		for _, row := range sh.SampleRows {
			text += " " + parser.NormalizeText(strings.Join(row, " "))
		}
		if parser.ContainsAny(text, timeSeriesIndicators) {
			return true
		}
	}
	return false
}

func anyContains(values []string, kw string) bool {
	for _, v := range values {
		if strings.Contains(v, kw) {
			return true
		}
	}
	return false
}

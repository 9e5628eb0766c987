package classifier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"energypassport/internal/model"
)

// ResourceRequirement what the passport needs for one resource
type ResourceRequirement struct {
	Required     bool     `yaml:"required" json:"required"`
	FilePatterns []string `yaml:"file_patterns" json:"file_patterns"`
	Keywords     []string `yaml:"keywords" json:"keywords"`
	MinQuarters  int      `yaml:"min_quarters" json:"min_quarters"`
	Fields       []string `yaml:"fields" json:"fields"`
	Description  string   `yaml:"description" json:"description"`
}

// MinimalRequirements floor a dataset must reach to be passport-ready
type MinimalRequirements struct {
	RequiredResources    []string `yaml:"required_resources" json:"required_resources"`
	MinQuarters          int      `yaml:"min_quarters" json:"min_quarters"`
	MinCompletenessScore float64  `yaml:"min_completeness_score" json:"min_completeness_score"`
}

// Matrix required data matrix. Built once and shared read-only.
type Matrix struct {
	Order     []string                       `yaml:"order" json:"order"`
	Resources map[string]ResourceRequirement `yaml:"resources" json:"resources"`
	Minimal   MinimalRequirements            `yaml:"minimal" json:"minimal"`
}

// DefaultMatrix built-in requirements
func DefaultMatrix() *Matrix {
	return &Matrix{
		Order: []string{
			"electricity", "gas", "water", "fuel", "coal", "heat",
			"equipment", "envelope", "nodes",
		},
		Resources: map[string]ResourceRequirement{
			"electricity": {
				Required: true,
				FilePatterns: []string{
					"pererashod", "electro", "electric", "электр", "consumption",
					"kvt", "квт", "realizaciya", "реализация", "balans", "баланс",
				},
				Keywords:    []string{"электр", "квт", "квт·ч", "kwh", "реализация", "баланс", "активная", "реактивная"},
				MinQuarters: 4,
				Fields:      []string{model.FieldActiveKWh, model.FieldReactiveKVarh, model.FieldCostSum},
				Description: "Электроэнергия - обязательный ресурс",
			},
			"gas": {
				Required:     true,
				FilePatterns: []string{"gaz", "газ", "gas", "расчет газа", "raschet_gaza"},
				Keywords:     []string{"газ", "gas", "м3", "м³", "природный"},
				MinQuarters:  4,
				Fields:       []string{model.FieldVolumeM3, model.FieldCostSum},
				Description:  "Природный газ - обязательный ресурс",
			},
			"water": {
				FilePatterns: []string{"voda", "вода", "water", "сув"},
				Keywords:     []string{"вода", "water", "водоснабжение", "сув"},
				MinQuarters:  2,
				Fields:       []string{model.FieldVolumeM3, model.FieldCostSum},
				Description:  "Вода - опциональный ресурс",
			},
			"fuel": {
				FilePatterns: []string{"мазут", "mazut", "fuel", "топливо", "toplivo"},
				Keywords:     []string{"мазут", "топливо", "fuel", "дизель"},
				MinQuarters:  2,
				Fields:       []string{"mass_ton", model.FieldCostSum},
				Description:  "Жидкое топливо - опциональный ресурс",
			},
			"coal": {
				FilePatterns: []string{"уголь", "coal", "ugol"},
				Keywords:     []string{"уголь", "coal"},
				MinQuarters:  2,
				Fields:       []string{"mass_ton", model.FieldCostSum},
				Description:  "Уголь - опциональный ресурс",
			},
			"heat": {
				FilePatterns: []string{"otoplenie", "отопление", "heat", "kotel", "котел", "тепло", "гкал"},
				Keywords:     []string{"тепл", "гкал", "gcal", "отоплен", "heat"},
				MinQuarters:  2,
				Fields:       []string{"heat_gcal", model.FieldCostSum},
				Description:  "Тепловая энергия - опциональный ресурс",
			},
			"equipment": {
				FilePatterns: []string{"oborudovanie", "оборудование", "equipment"},
				Keywords:     []string{"оборудование", "мощность", "паспорт оборудования", "equipment"},
				Description:  "Перечень оборудования - опциональные данные",
			},
			"envelope": {
				Required: true,
				FilePatterns: []string{
					"ograjdayuschie", "ограждающие", "envelope", "teploprovodnost",
					"теплопроводность", "паспорт здани", "ццр",
				},
				Keywords:    []string{"ограждающ", "теплопровод", "стены", "кровля", "окна", "envelope"},
				Description: "Ограждающие конструкции - обязательные данные",
			},
			"nodes": {
				Required:     true,
				FilePatterns: []string{"uzly_ucheta", "узлы", "nodes", "schetchiki", "счетчики", "metering", "прибор"},
				Keywords:     []string{"узел учета", "узлы учета", "счетчик", "прибор учета", "metering"},
				Description:  "Узлы учета - обязательные данные",
			},
		},
		Minimal: MinimalRequirements{
			RequiredResources:    []string{"electricity", "gas", "nodes", "envelope"},
			MinQuarters:          4,
			MinCompletenessScore: 0.6,
		},
	}
}

// LoadMatrix reads a YAML override on top of DefaultMatrix.
// Resources present in the file replace the built-in entry wholesale.
func LoadMatrix(path string) (*Matrix, error) {
	m := DefaultMatrix()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}
	var override Matrix
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse matrix file: %w", err)
	}
	for name, req := range override.Resources {
		if _, known := m.Resources[name]; !known {
			m.Order = append(m.Order, name)
		}
		m.Resources[name] = req
	}
	if len(override.Order) > 0 {
		m.Order = override.Order
	}
	if len(override.Minimal.RequiredResources) > 0 {
		m.Minimal.RequiredResources = override.Minimal.RequiredResources
	}
	if override.Minimal.MinQuarters > 0 {
		m.Minimal.MinQuarters = override.Minimal.MinQuarters
	}
	if override.Minimal.MinCompletenessScore > 0 {
		m.Minimal.MinCompletenessScore = override.Minimal.MinCompletenessScore
	}
	return m, nil
}

// Requirement entry for a resource
func (m *Matrix) Requirement(resource string) (ResourceRequirement, bool) {
	r, ok := m.Resources[resource]
	return r, ok
}

// RequiredResources required resources in matrix order
func (m *Matrix) RequiredResources() []string {
	var out []string
	for _, name := range m.Order {
		if r, ok := m.Resources[name]; ok && r.Required {
			out = append(out, name)
		}
	}
	return out
}

// OptionalResources optional resources in matrix order
func (m *Matrix) OptionalResources() []string {
	var out []string
	for _, name := range m.Order {
		if r, ok := m.Resources[name]; ok && !r.Required {
			out = append(out, name)
		}
	}
	return out
}

// MatchesFilePattern reports whether filename carries one of the resource's patterns
func (m *Matrix) MatchesFilePattern(filename, resource string) bool {
	r, ok := m.Resources[resource]
	if !ok {
		return false
	}
	name := strings.ToLower(filename)
	for _, p := range r.FilePatterns {
		if strings.Contains(name, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// ResourcesForFile every resource whose file pattern matches, in matrix order
func (m *Matrix) ResourcesForFile(filename string) []string {
	var out []string
	for _, name := range m.Order {
		if m.MatchesFilePattern(filename, name) {
			out = append(out, name)
		}
	}
	return out
}

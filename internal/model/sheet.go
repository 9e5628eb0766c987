package model

// ResourceTag routing category of an uploaded file
type ResourceTag string

const (
	TagElectricity ResourceTag = "electricity"
	TagGas         ResourceTag = "gas"
	TagWater       ResourceTag = "water"
	TagHeat        ResourceTag = "heat"
	TagFuel        ResourceTag = "fuel"
	TagCoal        ResourceTag = "coal"
	TagEquipment   ResourceTag = "equipment"
	TagNodes       ResourceTag = "nodes"
	TagEnvelope    ResourceTag = "envelope"
	TagOther       ResourceTag = "other"
)

// AllTags the fixed tag set
var AllTags = []ResourceTag{
	TagElectricity, TagGas, TagWater, TagHeat, TagFuel, TagCoal,
	TagEquipment, TagNodes, TagEnvelope, TagOther,
}

// Valid reports membership in the fixed tag set
func (t ResourceTag) Valid() bool {
	for _, v := range AllTags {
		if v == t {
			return true
		}
	}
	return false
}

// Sheet parsed sheet: rows of cells holding nil, float64 or string
type Sheet struct {
	Name string  `json:"name"`
	Rows [][]any `json:"rows"`
}

// Workbook parsed workbook in sheet order
type Workbook struct {
	Sheets []Sheet `json:"sheets"`
}

// SheetNames names in workbook order
func (w Workbook) SheetNames() []string {
	out := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		out = append(out, s.Name)
	}
	return out
}

// Sheet looks a sheet up by exact name
func (w Workbook) Sheet(name string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// SheetPreview header and sample rows of one sheet
type SheetPreview struct {
	Name       string     `json:"name"`
	Headers    []string   `json:"headers"`
	SampleRows [][]string `json:"sample_rows"`
}

// Table generic table from a Word document or OCR
type Table struct {
	Headers    []string `json:"headers"`
	Rows       [][]any  `json:"rows"`
	Confidence float64  `json:"confidence,omitempty"`
}

// RawContent already-parsed content of an upload
type RawContent struct {
	Sheets []SheetPreview `json:"sheets,omitempty"`
	Tables []Table        `json:"tables,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// OCRResult output of the OCR collaborator
type OCRResult struct {
	Text       string  `json:"text"`
	Tables     []Table `json:"tables"`
	Confidence float64 `json:"confidence"`
}

package model

import "time"

// Upload status values
const (
	UploadProcessing = "processing"
	UploadSuccess    = "success"
	UploadFailed     = "failed"
	UploadCancelled  = "cancelled"
)

// Enterprise audited enterprise
type Enterprise struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Upload one uploaded source file
type Upload struct {
	ID           int64       `json:"id"`
	BatchID      string      `json:"batchId"`
	EnterpriseID int64       `json:"enterpriseId"`
	Filename     string      `json:"filename"`
	FilePath     string      `json:"filePath"`
	Status       string      `json:"status"`
	ResourceTag  ResourceTag `json:"resourceTag"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// PhaseResult outcome of one pipeline phase
type PhaseResult struct {
	Phase    string        `json:"phase"`
	Status   string        `json:"status"` // done/skipped/error
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// IngestReport summary of one upload pipeline run
type IngestReport struct {
	BatchID       string        `json:"batchId"`
	Filename      string        `json:"filename"`
	ResourceTag   ResourceTag   `json:"resourceTag"`
	Status        string        `json:"status"`
	Resources     []string      `json:"resources"`
	QuarterCount  int           `json:"quarterCount"`
	MissingSheets []string      `json:"missingSheets"`
	NodeRecords   int           `json:"nodeRecords"`
	Phases        []PhaseResult `json:"phases"`
	Duration      time.Duration `json:"duration"`
}

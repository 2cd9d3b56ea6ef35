package diagnosis

import "time"

// Status classifies the crop assessment.
type Status string

const (
	StatusHealthy  Status = "Healthy"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
	StatusUnknown  Status = "Unknown"
	StatusError    Status = "Error"
)

// Request carries the uploaded photo.
type Request struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

// Result is the structured assessment rendered to the farmer. Immutable once
// created; persisted only through an explicit history save.
type Result struct {
	Status            Status    `json:"status"`
	Confidence        int       `json:"confidence"`
	IssuesEn          []string  `json:"issuesEn"`
	IssuesNe          []string  `json:"issuesNe"`
	RecommendationsEn []string  `json:"recommendationsEn"`
	RecommendationsNe []string  `json:"recommendationsNe"`
	ImageRef          string    `json:"imageRef,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Config wires runtime settings for the diagnosis domain.
type Config struct {
	Model string
}

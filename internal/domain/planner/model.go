package planner

// Request selects the crop to plan for.
type Request struct {
	Crop string `json:"crop"`
}

// Stage is one of the four phases of the generated farming calendar.
type Stage struct {
	StageName      string `json:"stageName"`
	DateRangeLabel string `json:"dateRangeLabel"`
	AdviceEn       string `json:"adviceEn"`
	AdviceNe       string `json:"adviceNe"`
}

// Plan is the ordered four-stage calendar returned per request. Not
// persisted unless the farmer converts stages into tasks.
type Plan struct {
	Crop   string  `json:"crop"`
	Stages []Stage `json:"stages"`
}

// Config wires runtime settings for the planner domain.
type Config struct {
	Model string
}

package domain

// Step names a phase of a pipeline run as seen by clients.
type Step string

const (
	StepQueued          Step = "queued"
	StepStarting        Step = "starting"
	StepScraping        Step = "scraping"
	StepProcessingSetup Step = "processing_setup"
	StepProcessingCase  Step = "processing_case"
	StepDownloading     Step = "downloading"
	StepUnzipping       Step = "unzipping"
	StepAnalyzing       Step = "analyzing"
	StepComparing       Step = "comparing"
	StepComplete        Step = "complete"
	StepError           Step = "error"
)

// Terminal reports whether no further events follow this step.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepError
}

// ProgressEvent is one entry of a run's ordered progress stream.
type ProgressEvent struct {
	Step     Step     `json:"step"`
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message"`
	Data     any      `json:"data,omitempty"`
}

// At returns a progress pointer for event literals.
func At(p float64) *float64 {
	return &p
}

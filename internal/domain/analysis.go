package domain

// DocumentResult is the structured payload extracted from one document.
type DocumentResult struct {
	CaseNumber   string   `json:"caseNumber"`
	Parties      []string `json:"parties"`
	DecisionDate string   `json:"decisionDate"`
	Summary      string   `json:"summary"`
}

// DocumentAnalysis holds either a Result or an Error for one file, never both.
type DocumentAnalysis struct {
	File   ExtractedFile
	Result *DocumentResult
	Error  string
}

// Succeeded reports whether the analysis produced a structured result.
func (a DocumentAnalysis) Succeeded() bool {
	return a.Result != nil && a.Error == ""
}

// Succeed builds a successful analysis record.
func Succeed(file ExtractedFile, result DocumentResult) DocumentAnalysis {
	return DocumentAnalysis{File: file, Result: &result}
}

// Fail builds a failed analysis record. An empty reason is replaced so the
// record never ends up with neither field set.
func Fail(file ExtractedFile, reason string) DocumentAnalysis {
	if reason == "" {
		reason = "unknown analysis failure"
	}
	return DocumentAnalysis{File: file, Error: reason}
}

// ProcessedFiling is a filing together with its downloads and per-document analyses.
type ProcessedFiling struct {
	Filing   FilingInfo
	Files       []DownloadedFile
	FailedLinks []LinkFailure
	Analyses    []DocumentAnalysis
	Note        string
}

// SuccessfulSummaries returns the non-empty summaries of successful analyses in order.
func (p ProcessedFiling) SuccessfulSummaries() []string {
	var out []string
	for _, a := range p.Analyses {
		if !a.Succeeded() || a.Result.Summary == "" {
			continue
		}
		out = append(out, a.Result.Summary)
	}
	return out
}

// PipelineResult is the outcome of one orchestrator run.
type PipelineResult struct {
	Filings   []ProcessedFiling
	Narrative string
}

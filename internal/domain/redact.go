package domain

// PublicFile is a file reference without its local path.
type PublicFile struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// PublicLinkFailure is a download failure safe to send to clients.
type PublicLinkFailure struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// PublicAnalysis is a DocumentAnalysis safe to send to clients.
type PublicAnalysis struct {
	File   PublicFile      `json:"file"`
	Result *DocumentResult `json:"aiResult,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// PublicFiling is a ProcessedFiling safe to send to clients.
type PublicFiling struct {
	Filing   FilingInfo       `json:"caseResult"`
	Files    []PublicFile        `json:"files"`
	Failed   []PublicLinkFailure `json:"failedDownloads,omitempty"`
	Analyses []PublicAnalysis    `json:"individualAnalyses"`
	Note     string              `json:"note,omitempty"`
}

// PublicResult is the terminal payload of a successful progress stream.
type PublicResult struct {
	Filings   []PublicFiling `json:"processedCases"`
	Narrative string         `json:"comparativeAnalysis"`
}

// Redact strips every local file path from the result.
func (r PipelineResult) Redact() PublicResult {
	out := PublicResult{
		Filings:   make([]PublicFiling, 0, len(r.Filings)),
		Narrative: r.Narrative,
	}
	for _, pf := range r.Filings {
		filing := PublicFiling{
			Filing:   pf.Filing,
			Files:    make([]PublicFile, 0, len(pf.Files)),
			Analyses: make([]PublicAnalysis, 0, len(pf.Analyses)),
			Note:     pf.Note,
		}
		for _, f := range pf.Files {
			filing.Files = append(filing.Files, PublicFile{URL: f.URL, Text: f.Text})
		}
		for _, lf := range pf.FailedLinks {
			filing.Failed = append(filing.Failed, PublicLinkFailure{URL: lf.Link.URL, Text: lf.Link.Text, Error: lf.Error})
		}
		for _, a := range pf.Analyses {
			filing.Analyses = append(filing.Analyses, PublicAnalysis{
				File:   PublicFile{URL: a.File.URL, Text: a.File.Text},
				Result: a.Result,
				Error:  a.Error,
			})
		}
		out.Filings = append(out.Filings, filing)
	}
	return out
}

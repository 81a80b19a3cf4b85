package domain

import "fmt"

// Participant is a party listed on a court notice.
type Participant struct {
	Name    string `json:"name"`
	OIB     string `json:"oib"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

// AttachmentLink points to a downloadable document published with a filing.
type AttachmentLink struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// FilingInfo is one published court record parsed from a search result.
type FilingInfo struct {
	Title        string           `json:"title"`
	CaseNumber   string           `json:"caseNumber"`
	Court        string           `json:"court"`
	Date         string           `json:"date"`
	DetailLink   string           `json:"detailLink"`
	Attachments  []AttachmentLink `json:"documentLinks"`
	Participants []Participant    `json:"participants"`
}

// IdentityKey returns the composite value used to detect a changed latest filing.
// Filings sharing case number and date across different courts collapse to the same key.
func (f FilingInfo) IdentityKey() string {
	return fmt.Sprintf("%s - %s", f.CaseNumber, f.Date)
}

// DownloadedFile is an attachment stored on local disk for the lifetime of one run.
type DownloadedFile struct {
	Path string
	URL  string
	Text string
}

// LinkFailure is an attachment link that could not be downloaded.
type LinkFailure struct {
	Link  AttachmentLink
	Error string
}

// ExtractedFile is a file ready for analysis, possibly expanded from an archive.
type ExtractedFile struct {
	Path string
	URL  string
	Text string
}

// AsExtracted passes a non-container download through unchanged.
func (d DownloadedFile) AsExtracted() ExtractedFile {
	return ExtractedFile{Path: d.Path, URL: d.URL, Text: d.Text}
}

package analysis

import (
	"fmt"
	"strings"

	"CourtMonitor/internal/domain"
)

const pageTextInstruction = "Transcribe all text visible on this page of a court document exactly as written. " +
	"Return only the transcribed text, without commentary or formatting."

func documentPrompt(language, text string) string {
	return fmt.Sprintf(`From the court document text below, extract key information as a JSON object with the following keys: "caseNumber", "parties" (an array of strings), "decisionDate", and "summary" (a medium-sized paragraph, nicely formatted, written in %s). Respond with the JSON object only. Text:

%s`, language, text)
}

func singleFilingPrompt(language string, filing domain.FilingInfo, summaries []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a legal analyst. Below are summaries of the documents of one court notice (%s, case %s, court %s, published %s).\n",
		filing.Title, filing.CaseNumber, filing.Court, filing.Date)
	fmt.Fprintf(&sb, "Write one coherent narrative in %s that explains what the case is about and where it stands, "+
		"and finish with a short forecast of the likely next procedural steps.\n\n", language)
	for i, s := range summaries {
		fmt.Fprintf(&sb, "Document %d:\n%s\n\n", i+1, s)
	}
	return sb.String()
}

func multiFilingPrompt(language string, blocks []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a legal analyst. Below are summaries of %d court notices for the same search, newest first.\n", len(blocks))
	fmt.Fprintf(&sb, "Write one comparative narrative in %s that synthesises how the matter developed across the notices, "+
		"and finish with a short forecast of the likely next steps.\n\n", language)
	for _, b := range blocks {
		sb.WriteString(b)
		sb.WriteString("\n")
	}
	return sb.String()
}

func filingBlock(index int, pf domain.ProcessedFiling, summaries []string, empty string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Notice %d: %s (%s) ---\n", index+1, pf.Filing.Title, pf.Filing.Date)
	if len(summaries) == 0 {
		note := pf.Note
		if note == "" {
			note = empty
		}
		sb.WriteString(note)
		sb.WriteString("\n")
		return sb.String()
	}
	for _, s := range summaries {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}

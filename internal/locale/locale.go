// Package locale holds the user-facing strings for each supported locale.
package locale

import (
	"fmt"
	"strings"
)

// Catalog is the set of messages and prompt settings for one locale.
type Catalog struct {
	Code     string
	Language string

	Queued          string
	Starting        string
	Scraping        string
	FoundFilings    string
	ProcessingCase  string
	Downloading     string
	Unzipping       string
	Analyzing       string
	Comparing       string
	Complete        string
	GenericError    string
	NoFilings       string
	NoCases         string
	NoDocumentsNote string

	NoData               string
	NoSuccessfulAnalysis string
	SynthesisFailed      string

	BurstLimited     string
	SustainedLimited string
}

var croatian = Catalog{
	Code:                 "hr",
	Language:             "Croatian",
	Queued:               "Vaš zahtjev je u redu čekanja (pozicija %d)...",
	Starting:             "Vaš zahtjev je započeo s obradom...",
	Scraping:             "Pretražujem sudske zapise za nedavne objave...",
	FoundFilings:         "Pronađeno %d objava za analizu.",
	ProcessingCase:       "Obrađujem objavu %d od %d: %s",
	Downloading:          "Preuzimam arhivu za objavu %d...",
	Unzipping:            "Raspakiram datoteke za objavu %d...",
	Analyzing:            "Analiziram %d datoteka za objavu %d...",
	Comparing:            "Generiram usporednu analizu i zaključak...",
	Complete:             "Analiza je završena!",
	GenericError:         "Došlo je do greške u obradi.",
	NoFilings:            "Nije pronađen nijedan predmet s dostupnim dokumentima za traženi pojam.",
	NoCases:              "Nema predmeta za obradu.",
	NoDocumentsNote:      "Nema dokumenata za analizu.",
	NoData:               "Nema podataka za analizu.",
	NoSuccessfulAnalysis: "Nijedan dokument nije uspješno analiziran.",
	SynthesisFailed:      "Nije moguće generirati sažetak analize.",
	BurstLimited:         "Previše zahtjeva. Molimo pokušajte ponovno za nekoliko sekundi.",
	SustainedLimited:     "Dosegnuli ste ograničenje zahtjeva po satu. Molimo pokušajte ponovno kasnije.",
}

var english = Catalog{
	Code:                 "en",
	Language:             "English",
	Queued:               "Your request is queued (position %d)...",
	Starting:             "Your request has started processing...",
	Scraping:             "Searching court records for recent notices...",
	FoundFilings:         "Found %d notices to analyze.",
	ProcessingCase:       "Processing notice %d of %d: %s",
	Downloading:          "Downloading the archive for notice %d...",
	Unzipping:            "Unpacking files for notice %d...",
	Analyzing:            "Analyzing %d files for notice %d...",
	Comparing:            "Generating the comparative analysis and conclusion...",
	Complete:             "Analysis complete!",
	GenericError:         "An error occurred during processing.",
	NoFilings:            "No filing with available documents was found for the search term.",
	NoCases:              "There are no filings to process.",
	NoDocumentsNote:      "No documents to analyze.",
	NoData:               "No data to analyze.",
	NoSuccessfulAnalysis: "No document was analyzed successfully.",
	SynthesisFailed:      "The analysis summary could not be generated.",
	BurstLimited:         "Too many requests. Please try again in a few seconds.",
	SustainedLimited:     "Hourly request limit reached. Please try again later.",
}

// For returns the catalog for code, defaulting to Croatian.
func For(code string) Catalog {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "en", "en-us", "en-gb":
		return english
	default:
		return croatian
	}
}

// Format fills a catalog template.
func Format(template string, args ...any) string {
	return fmt.Sprintf(template, args...)
}

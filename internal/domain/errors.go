package domain

import "errors"

var (
	// ErrNoCases is returned when a run is started without any filings.
	ErrNoCases = errors.New("no filings supplied for processing")
	// ErrNoFilings is returned when the search finds nothing with downloadable documents.
	ErrNoFilings = errors.New("no filing with downloadable documents found for the query")
	// ErrEmptyQuery rejects blank search terms.
	ErrEmptyQuery = errors.New("search term is required")
	// ErrNotFound is returned by repositories for unknown records.
	ErrNotFound = errors.New("not found")
)

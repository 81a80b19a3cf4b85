package scanner

import (
	"context"
	"fmt"
	"sort"

	"CourtMonitor/internal/domain"
)

// Request carries all parameters required to execute one search.
type Request struct {
	Query string
	Limit int
}

// Session is an open connection to one record source. Sessions are not
// safe for concurrent searches.
type Session interface {
	Search(ctx context.Context, req Request) ([]domain.FilingInfo, error)
	Close() error
}

// Scanner captures a single strategy implementation (e-Oglasna, mirrors, etc.).
type Scanner interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered (known: %v)", name, r.Names())
}

// Names lists registered scanners in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

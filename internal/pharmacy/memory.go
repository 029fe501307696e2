package pharmacy

import (
	"context"
	"sort"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu          sync.RWMutex
	pharmacies  []Pharmacy
	suggestions []Suggestion
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) CreatePharmacy(ctx context.Context, p Pharmacy) (Pharmacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pharmacies = append(s.pharmacies, p)
	return p, nil
}

func (s *InMemory) ListPharmacies(ctx context.Context, city string) ([]Pharmacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Pharmacy
	for _, p := range s.pharmacies {
		if city != "" && p.City != city {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) CreateSuggestion(ctx context.Context, sg Suggestion) (Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append(s.suggestions, sg)
	return sg, nil
}

func (s *InMemory) ListSuggestionsByDoctor(ctx context.Context, doctorID string) ([]Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Suggestion
	for _, sg := range s.suggestions {
		if sg.DoctorID == doctorID {
			out = append(out, sg)
		}
	}
	return out, nil
}

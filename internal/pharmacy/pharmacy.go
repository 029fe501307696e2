// Package pharmacy holds the pharmacy directory and the suggestion inbox
// through which verified doctors propose new entries for it.
package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
)

// Pharmacy is one directory entry.
type Pharmacy struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Governorate string  `json:"governorate,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// SuggestionStatus follows pending -> accepted | rejected. Suggestions stay
// pending until an operator reviews them out of band.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion is a doctor's proposal for a new directory entry.
type Suggestion struct {
	ID        string           `json:"id"`
	DoctorID  string           `json:"doctor_id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	City      string           `json:"city"`
	Phone     string           `json:"phone,omitempty"`
	Latitude  float64          `json:"latitude,omitempty"`
	Longitude float64          `json:"longitude,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Status    SuggestionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("pharmacy: not found")
	ErrInvalidInput = errors.New("pharmacy: invalid input")
)

// Store defines persistence for the directory and the suggestion inbox.
type Store interface {
	CreatePharmacy(ctx context.Context, p Pharmacy) (Pharmacy, error)
	ListPharmacies(ctx context.Context, city string) ([]Pharmacy, error)
	CreateSuggestion(ctx context.Context, sg Suggestion) (Suggestion, error)
	ListSuggestionsByDoctor(ctx context.Context, doctorID string) ([]Suggestion, error)
}

// Service gates suggestion writes behind the authorization engine. Directory
// reads are open to every authenticated account.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("pharmacy store is required")
	}
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List returns directory entries, optionally filtered by city.
func (s *Service) List(ctx context.Context, actor *account.Account, city string) ([]Pharmacy, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	return s.store.ListPharmacies(ctx, strings.TrimSpace(city))
}

// SuggestionInput carries the fields a doctor submits for a new pharmacy.
type SuggestionInput struct {
	Name      string
	Address   string
	City      string
	Phone     string
	Latitude  float64
	Longitude float64
	Notes     string
}

// Suggest records a pending directory proposal. Requires the
// doctor:suggest-pharmacy capability, so unverified doctors are denied.
func (s *Service) Suggest(ctx context.Context, doctor *account.Account, in SuggestionInput) (Suggestion, error) {
	if err := authz.Decide(doctor, authz.CapDoctorSuggestPharm); err != nil {
		return Suggestion{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	if in.Name == "" || in.City == "" {
		return Suggestion{}, fmt.Errorf("%w: name and city are required", ErrInvalidInput)
	}
	return s.store.CreateSuggestion(ctx, Suggestion{
		ID:        ids.New(),
		DoctorID:  doctor.ID,
		Name:      in.Name,
		Address:   strings.TrimSpace(in.Address),
		City:      in.City,
		Phone:     strings.TrimSpace(in.Phone),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    SuggestionPending,
		CreatedAt: s.now(),
	})
}

// MySuggestions lists the calling doctor's own proposals.
func (s *Service) MySuggestions(ctx context.Context, doctor *account.Account) ([]Suggestion, error) {
	if err := authz.Decide(doctor, authz.CapDoctorSuggestPharm); err != nil {
		return nil, err
	}
	return s.store.ListSuggestionsByDoctor(ctx, doctor.ID)
}

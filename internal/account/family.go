package account

import (
	"context"
	"strings"
	"time"

	"medrecord.org/internal/ids"
	"medrecord.org/internal/validate"
)

// FamilyMember is a dependent managed under an account. Dependents have no
// login of their own; the owning account reads and edits them.
type FamilyMember struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	FullName          string    `json:"full_name"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender"`
	Relationship      string    `json:"relationship"`
	BloodType         string    `json:"blood_type,omitempty"`
	Allergies         []string  `json:"allergies"`
	ChronicConditions []string  `json:"chronic_conditions"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FamilyInput carries the editable fields of a family member.
type FamilyInput struct {
	FullName          string
	Age               int
	Gender            string
	Relationship      string
	BloodType         string
	Allergies         []string
	ChronicConditions []string
}

func (in *FamilyInput) normalize() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.Relationship = strings.ToLower(strings.TrimSpace(in.Relationship))
	in.BloodType = strings.TrimSpace(in.BloodType)
	if err := validate.Name(in.FullName); err != nil {
		return err
	}
	if err := validate.Age(in.Age); err != nil {
		return err
	}
	if err := validate.Gender(in.Gender); err != nil {
		return err
	}
	return validate.Relationship(in.Relationship)
}

// FamilyStore persists family members. Every lookup is scoped by the owning
// account ID so one account can never address another's dependents.
type FamilyStore interface {
	AddFamilyMember(ctx context.Context, m FamilyMember) (FamilyMember, error)
	GetFamilyMember(ctx context.Context, accountID, id string) (FamilyMember, error)
	ListFamilyMembers(ctx context.Context, accountID string) ([]FamilyMember, error)
	UpdateFamilyMember(ctx context.Context, m FamilyMember) (FamilyMember, error)
	RemoveFamilyMember(ctx context.Context, accountID, id string) error
}

// AddFamilyMember validates and stores a new dependent for the account.
func (s *Service) AddFamilyMember(ctx context.Context, accountID string, in FamilyInput) (FamilyMember, error) {
	if err := in.normalize(); err != nil {
		return FamilyMember{}, err
	}
	if _, err := s.store.Get(ctx, accountID); err != nil {
		return FamilyMember{}, err
	}
	now := time.Now().UTC()
	return s.store.AddFamilyMember(ctx, FamilyMember{
		ID:                ids.New(),
		AccountID:         accountID,
		FullName:          in.FullName,
		Age:               in.Age,
		Gender:            in.Gender,
		Relationship:      in.Relationship,
		BloodType:         in.BloodType,
		Allergies:         in.Allergies,
		ChronicConditions: in.ChronicConditions,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

// FamilyMembers lists the account's dependents.
func (s *Service) FamilyMembers(ctx context.Context, accountID string) ([]FamilyMember, error) {
	return s.store.ListFamilyMembers(ctx, accountID)
}

// FamilyMemberByID fetches one dependent of the account.
func (s *Service) FamilyMemberByID(ctx context.Context, accountID, id string) (FamilyMember, error) {
	return s.store.GetFamilyMember(ctx, accountID, id)
}

// UpdateFamilyMember replaces the editable fields of a dependent.
func (s *Service) UpdateFamilyMember(ctx context.Context, accountID, id string, in FamilyInput) (FamilyMember, error) {
	if err := in.normalize(); err != nil {
		return FamilyMember{}, err
	}
	current, err := s.store.GetFamilyMember(ctx, accountID, id)
	if err != nil {
		return FamilyMember{}, err
	}
	current.FullName = in.FullName
	current.Age = in.Age
	current.Gender = in.Gender
	current.Relationship = in.Relationship
	current.BloodType = in.BloodType
	current.Allergies = in.Allergies
	current.ChronicConditions = in.ChronicConditions
	current.UpdatedAt = time.Now().UTC()
	return s.store.UpdateFamilyMember(ctx, current)
}

// RemoveFamilyMember deletes a dependent of the account.
func (s *Service) RemoveFamilyMember(ctx context.Context, accountID, id string) error {
	return s.store.RemoveFamilyMember(ctx, accountID, id)
}

package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medrecord.org/internal/auth"
	"medrecord.org/internal/ids"
	"medrecord.org/internal/validate"
)

var ErrInvalidCredentials = errors.New("account: invalid credentials")

// Registration carries the fields accepted at sign-up. Doctor-specific fields
// are ignored for patient registrations.
type Registration struct {
	NationalID     string
	Name           string
	Phone          string
	Email          string
	Password       string
	DateOfBirth    time.Time
	Role           Role
	Specialization string
	City           string
	Governorate    string
}

// Service wraps a Store with input validation and credential handling.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	return &Service{store: store}, nil
}

// Register creates a new account. A patient registration is approved
// immediately; a doctor registration starts unverified and is expected to be
// followed by an application submission.
func (s *Service) Register(ctx context.Context, reg Registration) (Account, error) {
	if err := validate.NationalID(reg.NationalID); err != nil {
		return Account{}, err
	}
	if err := validate.Name(reg.Name); err != nil {
		return Account{}, err
	}
	if err := validate.Phone(reg.Phone); err != nil {
		return Account{}, err
	}
	if reg.Email != "" {
		if err := validate.Email(reg.Email); err != nil {
			return Account{}, err
		}
	}
	if err := validate.Password(reg.Password); err != nil {
		return Account{}, err
	}
	if !reg.DateOfBirth.IsZero() {
		if err := validate.DateOfBirth(reg.DateOfBirth); err != nil {
			return Account{}, err
		}
	}

	role := reg.Role
	if role == "" {
		role = RolePatient
	}
	if role != RolePatient && role != RoleDoctor {
		return Account{}, fmt.Errorf("%w: cannot self-register as %s", ErrInvalidRole, role)
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	acct := Account{
		ID:           ids.New(),
		NationalID:   strings.TrimSpace(reg.NationalID),
		Name:         strings.TrimSpace(reg.Name),
		Phone:        strings.TrimSpace(reg.Phone),
		Email:        strings.TrimSpace(strings.ToLower(reg.Email)),
		DateOfBirth:  reg.DateOfBirth,
		PasswordHash: hash,
		Roles:        []Role{role},
		ActiveRole:   role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch role {
	case RoleDoctor:
		acct.VerificationStatus = VerificationPending
		acct.Specialization = strings.TrimSpace(reg.Specialization)
		acct.City = strings.TrimSpace(reg.City)
		acct.Governorate = strings.TrimSpace(reg.Governorate)
	default:
		acct.VerificationStatus = VerificationApproved
	}
	return s.store.Create(ctx, acct)
}

// Authenticate verifies credentials against the stored hash. The login may be
// a national ID or a phone number.
func (s *Service) Authenticate(ctx context.Context, login, password string) (Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}
	acct, err := s.store.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := auth.VerifyPassword(acct.PasswordHash, password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// SwitchRole changes the active role of a multi-role account. Switching to an
// unverified doctor role is permitted; doctor capabilities stay gated by the
// verification status until approval.
func (s *Service) SwitchRole(ctx context.Context, accountID string, target Role) (Account, error) {
	acct, err := s.store.Get(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if !acct.HasRole(target) {
		return Account{}, fmt.Errorf("%w: %s not in role set", ErrInvalidRole, target)
	}
	return s.store.UpdateActiveRole(ctx, accountID, target)
}

// UpdateProfile applies optional profile changes.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (Account, error) {
	if upd.Name != nil {
		if err := validate.Name(*upd.Name); err != nil {
			return Account{}, err
		}
		trimmed := strings.TrimSpace(*upd.Name)
		upd.Name = &trimmed
	}
	if upd.Email != nil {
		if err := validate.Email(*upd.Email); err != nil {
			return Account{}, err
		}
		lowered := strings.TrimSpace(strings.ToLower(*upd.Email))
		upd.Email = &lowered
	}
	return s.store.UpdateProfile(ctx, accountID, upd)
}

// Get fetches an account by internal ID.
func (s *Service) Get(ctx context.Context, accountID string) (Account, error) {
	return s.store.Get(ctx, accountID)
}

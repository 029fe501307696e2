package account

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is one of the closed set of roles an account may hold.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole normalises and validates a role name.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRole, raw)
	}
}

// VerificationStatus is the admin-controlled approval state for the doctor role.
// Patients and admins are implicitly approved.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// ParseVerificationStatus normalises and validates a verification status name.
func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	switch VerificationStatus(strings.TrimSpace(strings.ToLower(raw))) {
	case VerificationPending:
		return VerificationPending, nil
	case VerificationApproved:
		return VerificationApproved, nil
	case VerificationRejected:
		return VerificationRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown verification status %q", ErrInvalidStatus, raw)
	}
}

// Account is the root identity record. ID is an internal opaque identifier;
// NationalID is the external 14-digit identifier used for login.
type Account struct {
	ID                 string             `json:"id"`
	NationalID         string             `json:"national_id"`
	Name               string             `json:"name"`
	Phone              string             `json:"phone"`
	Email              string             `json:"email"`
	DateOfBirth        time.Time          `json:"date_of_birth"`
	PasswordHash       string             `json:"-"`
	Roles              []Role             `json:"roles"`
	ActiveRole         Role               `json:"active_role"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Specialization     string             `json:"specialization,omitempty"`
	City               string             `json:"city,omitempty"`
	Governorate        string             `json:"governorate,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// HasRole reports whether the role set contains r.
func (a Account) HasRole(r Role) bool {
	for _, have := range a.Roles {
		if have == r {
			return true
		}
	}
	return false
}

var (
	ErrNotFound      = errors.New("account: not found")
	ErrConflict      = errors.New("account: already exists")
	ErrInvalidRole   = errors.New("account: invalid role")
	ErrInvalidStatus = errors.New("account: invalid verification status")
)

// ProfileUpdate carries optional profile field changes. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	City        *string
	Governorate *string
}

// Package authz computes, for an account and a requested capability, whether
// access is permitted. Decisions are pure functions over the account state
// passed in; callers must fetch that state fresh from the store, since an
// admin decision or a role switch can change the answer between requests.
package authz

import (
	"errors"
	"fmt"

	"medrecord.org/internal/account"
)

// Capability is a named permission check evaluated against the caller's role
// set, active role and verification status.
type Capability string

const (
	CapPatientRecords      Capability = "patient:self-record-access"
	CapPatientMessaging    Capability = "patient:messaging"
	CapPatientAppointments Capability = "patient:appointments"
	CapPatientRateDoctor   Capability = "patient:rate-doctor"
	CapDoctorPrescribe     Capability = "doctor:prescribe"
	CapDoctorViewPatient   Capability = "doctor:view-patient"
	CapDoctorMessaging     Capability = "doctor:messaging"
	CapDoctorAppointments  Capability = "doctor:appointments"
	CapDoctorSuggestPharm  Capability = "doctor:suggest-pharmacy"
	CapAdminApprove        Capability = "admin:approve-application"
	CapAdminReject         Capability = "admin:reject-application"
	CapAdminListApps       Capability = "admin:list-applications"
	CapProfileEdit         Capability = "common:profile-edit"
)

// RequiredRole returns the role a capability is scoped to. The second return
// is false for common capabilities available to every role.
func (c Capability) RequiredRole() (account.Role, bool) {
	switch c {
	case CapPatientRecords, CapPatientMessaging, CapPatientAppointments, CapPatientRateDoctor:
		return account.RolePatient, true
	case CapDoctorPrescribe, CapDoctorViewPatient, CapDoctorMessaging, CapDoctorAppointments, CapDoctorSuggestPharm:
		return account.RoleDoctor, true
	case CapAdminApprove, CapAdminReject, CapAdminListApps:
		return account.RoleAdmin, true
	default:
		return "", false
	}
}

// ErrUnauthenticated is returned when no account was resolved for the caller.
var ErrUnauthenticated = errors.New("authz: unauthenticated")

// ErrForbidden is the match target for every denial of an authenticated
// caller. Use errors.As with *ForbiddenError to read the reason.
var ErrForbidden = errors.New("authz: forbidden")

// DenyReason distinguishes denials so the client can render "switch role"
// versus "pending approval" messaging.
type DenyReason string

const (
	ReasonRoleMismatch DenyReason = "role_mismatch"
	ReasonInactiveRole DenyReason = "inactive_role"
	ReasonUnverified   DenyReason = "unverified"
)

// ForbiddenError is a denial for an authenticated account.
type ForbiddenError struct {
	Capability Capability
	Reason     DenyReason
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("authz: forbidden (%s): %s", e.Reason, e.Capability)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Decide returns nil when the account may exercise the capability and a typed
// denial otherwise. Denials are expected results, not faults.
func Decide(acct *account.Account, capability Capability) error {
	if acct == nil {
		return ErrUnauthenticated
	}

	required, scoped := capability.RequiredRole()
	if scoped {
		if !acct.HasRole(required) {
			return &ForbiddenError{Capability: capability, Reason: ReasonRoleMismatch}
		}
		// The verification gate is unconditional for doctor capabilities: an
		// unapproved doctor must never reach doctor-only data, whatever the
		// active role says. Checked before the active-role gate so the client
		// sees "pending approval" rather than "switch role".
		if required == account.RoleDoctor && acct.VerificationStatus != account.VerificationApproved {
			return &ForbiddenError{Capability: capability, Reason: ReasonUnverified}
		}
		if acct.ActiveRole != required {
			return &ForbiddenError{Capability: capability, Reason: ReasonInactiveRole}
		}
	}
	return nil
}

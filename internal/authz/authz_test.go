package authz

import (
	"errors"
	"testing"

	"medrecord.org/internal/account"
)

func acct(roles []account.Role, active account.Role, status account.VerificationStatus) *account.Account {
	return &account.Account{
		ID:                 "acct-1",
		Roles:              roles,
		ActiveRole:         active,
		VerificationStatus: status,
	}
}

func TestDecideUnauthenticated(t *testing.T) {
	if err := Decide(nil, CapPatientRecords); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestDecideAllowsMatchingActiveRole(t *testing.T) {
	patient := acct([]account.Role{account.RolePatient}, account.RolePatient, account.VerificationApproved)
	for _, capability := range []Capability{CapPatientRecords, CapPatientMessaging, CapPatientAppointments} {
		if err := Decide(patient, capability); err != nil {
			t.Fatalf("Decide(%s): %v", capability, err)
		}
	}
}

func TestDecideRoleMismatch(t *testing.T) {
	patient := acct([]account.Role{account.RolePatient}, account.RolePatient, account.VerificationApproved)
	err := Decide(patient, CapDoctorPrescribe)
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if fe.Reason != ReasonRoleMismatch {
		t.Fatalf("reason = %s, want %s", fe.Reason, ReasonRoleMismatch)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("ForbiddenError must match ErrForbidden")
	}
}

func TestDecideInactiveRole(t *testing.T) {
	both := acct([]account.Role{account.RolePatient, account.RoleDoctor}, account.RoleDoctor, account.VerificationApproved)
	err := Decide(both, CapPatientRecords)
	var fe *ForbiddenError
	if !errors.As(err, &fe) || fe.Reason != ReasonInactiveRole {
		t.Fatalf("expected inactive_role denial, got %v", err)
	}
}

// A pending doctor is denied doctor capabilities even with the doctor role
// active. Verification outranks the active-role check.
func TestDecideUnverifiedDoctor(t *testing.T) {
	cases := []struct {
		name   string
		active account.Role
		status account.VerificationStatus
	}{
		{"pending active", account.RoleDoctor, account.VerificationPending},
		{"pending inactive", account.RolePatient, account.VerificationPending},
		{"rejected active", account.RoleDoctor, account.VerificationRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := acct([]account.Role{account.RolePatient, account.RoleDoctor}, tc.active, tc.status)
			err := Decide(doc, CapDoctorPrescribe)
			var fe *ForbiddenError
			if !errors.As(err, &fe) || fe.Reason != ReasonUnverified {
				t.Fatalf("expected unverified denial, got %v", err)
			}
		})
	}
}

func TestDecideApprovedDoctor(t *testing.T) {
	doc := acct([]account.Role{account.RolePatient, account.RoleDoctor}, account.RoleDoctor, account.VerificationApproved)
	for _, capability := range []Capability{CapDoctorPrescribe, CapDoctorViewPatient, CapDoctorMessaging, CapDoctorAppointments, CapDoctorSuggestPharm} {
		if err := Decide(doc, capability); err != nil {
			t.Fatalf("Decide(%s): %v", capability, err)
		}
	}
}

// Verification status never gates patient-scoped capabilities, so a doctor
// who switches back to the patient role keeps patient access while pending.
func TestDecidePendingDoctorAsPatient(t *testing.T) {
	doc := acct([]account.Role{account.RolePatient, account.RoleDoctor}, account.RolePatient, account.VerificationPending)
	for _, capability := range []Capability{CapPatientRecords, CapPatientRateDoctor} {
		if err := Decide(doc, capability); err != nil {
			t.Fatalf("Decide(%s): %v", capability, err)
		}
	}
}

func TestDecideCommonCapability(t *testing.T) {
	doc := acct([]account.Role{account.RoleDoctor}, account.RoleDoctor, account.VerificationPending)
	if err := Decide(doc, CapProfileEdit); err != nil {
		t.Fatalf("profile edit must not require verification: %v", err)
	}
}

func TestDecideAdmin(t *testing.T) {
	admin := acct([]account.Role{account.RoleAdmin}, account.RoleAdmin, account.VerificationApproved)
	for _, capability := range []Capability{CapAdminApprove, CapAdminReject, CapAdminListApps} {
		if err := Decide(admin, capability); err != nil {
			t.Fatalf("Decide(%s): %v", capability, err)
		}
	}
	// Admin role alone is not enough for doctor operations.
	if err := Decide(admin, CapDoctorPrescribe); err == nil {
		t.Fatal("expected denial for doctor capability on admin account")
	}
}

package account_test

import (
	"context"
	"errors"
	"testing"

	"medrecord.org/internal/account"
	"medrecord.org/internal/store/memory"
)

func newService(t *testing.T) *account.Service {
	t.Helper()
	svc, err := account.NewService(memory.New())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func patientRegistration() account.Registration {
	return account.Registration{
		NationalID: "29805241234567",
		Name:       "Omar Hassan",
		Phone:      "01012345678",
		Email:      "omar@example.com",
		Password:   "passw0rd1",
		Role:       account.RolePatient,
	}
}

func TestRegisterPatient(t *testing.T) {
	svc := newService(t)
	acct, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.ID == "" {
		t.Fatal("expected generated ID")
	}
	if acct.ActiveRole != account.RolePatient {
		t.Fatalf("active role = %s", acct.ActiveRole)
	}
	if acct.VerificationStatus != account.VerificationApproved {
		t.Fatalf("patient must be approved immediately, got %s", acct.VerificationStatus)
	}
	if acct.PasswordHash == "passw0rd1" {
		t.Fatal("password must be hashed")
	}
}

func TestRegisterDoctorStartsPending(t *testing.T) {
	svc := newService(t)
	reg := patientRegistration()
	reg.Role = account.RoleDoctor
	reg.Specialization = "Cardiology"
	acct, err := svc.Register(context.Background(), reg)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.VerificationStatus != account.VerificationPending {
		t.Fatalf("doctor must start pending, got %s", acct.VerificationStatus)
	}
	if acct.Specialization != "Cardiology" {
		t.Fatalf("specialization = %q", acct.Specialization)
	}
}

func TestRegisterRejectsAdmin(t *testing.T) {
	svc := newService(t)
	reg := patientRegistration()
	reg.Role = account.RoleAdmin
	if _, err := svc.Register(context.Background(), reg); !errors.Is(err, account.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Register(context.Background(), patientRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), patientRegistration()); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t)
	created, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// by national ID
	acct, err := svc.Authenticate(context.Background(), "29805241234567", "passw0rd1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if acct.ID != created.ID {
		t.Fatalf("authenticated wrong account %s", acct.ID)
	}

	// by phone
	if _, err := svc.Authenticate(context.Background(), "01012345678", "passw0rd1"); err != nil {
		t.Fatalf("Authenticate by phone: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "29805241234567", "wrongpass1"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "39901011234567", "passw0rd1"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Fatalf("unknown login must map to ErrInvalidCredentials, got %v", err)
	}
}

func TestSwitchRoleOutsideRoleSet(t *testing.T) {
	svc := newService(t)
	acct, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.SwitchRole(context.Background(), acct.ID, account.RoleDoctor); !errors.Is(err, account.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newService(t)
	acct, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	name := "Omar H Hassan"
	email := "New@Example.com"
	updated, err := svc.UpdateProfile(context.Background(), acct.ID, account.ProfileUpdate{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Omar H Hassan" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("email must be lowered, got %q", updated.Email)
	}
	// untouched fields survive
	if updated.Phone != acct.Phone {
		t.Fatalf("phone changed to %q", updated.Phone)
	}

	bad := "X1"
	if _, err := svc.UpdateProfile(context.Background(), acct.ID, account.ProfileUpdate{Name: &bad}); err == nil {
		t.Fatal("expected invalid name to be rejected")
	}
}

package account_test

import (
	"context"
	"errors"
	"testing"

	"medrecord.org/internal/account"
	"medrecord.org/internal/validate"
)

func familyInput() account.FamilyInput {
	return account.FamilyInput{
		FullName:     "Ahmed Hassan",
		Age:          12,
		Gender:       "male",
		Relationship: "son",
		BloodType:    "O+",
		Allergies:    []string{"Penicillin"},
	}
}

func TestAddFamilyMember(t *testing.T) {
	svc := newService(t)
	owner, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	member, err := svc.AddFamilyMember(context.Background(), owner.ID, familyInput())
	if err != nil {
		t.Fatalf("AddFamilyMember: %v", err)
	}
	if member.ID == "" || member.AccountID != owner.ID {
		t.Fatalf("member = %+v", member)
	}

	members, err := svc.FamilyMembers(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("FamilyMembers: %v", err)
	}
	if len(members) != 1 || members[0].FullName != "Ahmed Hassan" {
		t.Fatalf("members = %+v", members)
	}
}

func TestAddFamilyMemberValidation(t *testing.T) {
	svc := newService(t)
	owner, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := map[string]func(*account.FamilyInput){
		"digits in name":  func(in *account.FamilyInput) { in.FullName = "Invalid123" },
		"implausible age": func(in *account.FamilyInput) { in.Age = 151 },
		"bad gender":      func(in *account.FamilyInput) { in.Gender = "unknown" },
		"bad relation":    func(in *account.FamilyInput) { in.Relationship = "cousin" },
	}
	for name, mutate := range cases {
		in := familyInput()
		mutate(&in)
		if _, err := svc.AddFamilyMember(context.Background(), owner.ID, in); !errors.Is(err, validate.ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", name, err)
		}
	}
}

func TestFamilyMemberScopedToOwner(t *testing.T) {
	svc := newService(t)
	owner, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg := patientRegistration()
	reg.NationalID = "29805241234568"
	reg.Phone = "01012345679"
	stranger, err := svc.Register(context.Background(), reg)
	if err != nil {
		t.Fatalf("Register stranger: %v", err)
	}

	member, err := svc.AddFamilyMember(context.Background(), owner.ID, familyInput())
	if err != nil {
		t.Fatalf("AddFamilyMember: %v", err)
	}

	if _, err := svc.FamilyMemberByID(context.Background(), stranger.ID, member.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("foreign read err = %v, want ErrNotFound", err)
	}
	if err := svc.RemoveFamilyMember(context.Background(), stranger.ID, member.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("foreign remove err = %v, want ErrNotFound", err)
	}

	// the owner still can
	if _, err := svc.FamilyMemberByID(context.Background(), owner.ID, member.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

func TestUpdateFamilyMember(t *testing.T) {
	svc := newService(t)
	owner, err := svc.Register(context.Background(), patientRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	member, err := svc.AddFamilyMember(context.Background(), owner.ID, familyInput())
	if err != nil {
		t.Fatalf("AddFamilyMember: %v", err)
	}

	in := familyInput()
	in.Age = 13
	in.Allergies = []string{"Penicillin", "Aspirin"}
	updated, err := svc.UpdateFamilyMember(context.Background(), owner.ID, member.ID, in)
	if err != nil {
		t.Fatalf("UpdateFamilyMember: %v", err)
	}
	if updated.Age != 13 || len(updated.Allergies) != 2 {
		t.Fatalf("updated = %+v", updated)
	}

	if err := svc.RemoveFamilyMember(context.Background(), owner.ID, member.ID); err != nil {
		t.Fatalf("RemoveFamilyMember: %v", err)
	}
	if _, err := svc.FamilyMemberByID(context.Background(), owner.ID, member.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("read after remove err = %v", err)
	}
}

package pharmacy

import (
	"context"
	"errors"
	"testing"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
)

func approvedDoctor(id string) *account.Account {
	return &account.Account{
		ID:                 id,
		Roles:              []account.Role{account.RoleDoctor},
		ActiveRole:         account.RoleDoctor,
		VerificationStatus: account.VerificationApproved,
	}
}

func patient(id string) *account.Account {
	return &account.Account{
		ID:                 id,
		Roles:              []account.Role{account.RolePatient},
		ActiveRole:         account.RolePatient,
		VerificationStatus: account.VerificationApproved,
	}
}

func newTestService(t *testing.T) (*Service, *InMemory) {
	t.Helper()
	store := NewInMemory()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestListFiltersByCity(t *testing.T) {
	svc, store := newTestService(t)
	for _, p := range []Pharmacy{
		{ID: "p1", Name: "Central Pharmacy", City: "Cairo"},
		{ID: "p2", Name: "Giza Pharmacy", City: "Giza"},
	} {
		if _, err := store.CreatePharmacy(context.Background(), p); err != nil {
			t.Fatalf("CreatePharmacy: %v", err)
		}
	}

	all, err := svc.List(context.Background(), patient("pat-1"), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d", len(all))
	}

	cairo, err := svc.List(context.Background(), patient("pat-1"), "Cairo")
	if err != nil {
		t.Fatalf("List Cairo: %v", err)
	}
	if len(cairo) != 1 || cairo[0].ID != "p1" {
		t.Fatalf("cairo = %+v", cairo)
	}

	if _, err := svc.List(context.Background(), nil, ""); !errors.Is(err, authz.ErrUnauthenticated) {
		t.Fatalf("nil actor: err = %v", err)
	}
}

func TestSuggestRequiresVerifiedDoctor(t *testing.T) {
	svc, _ := newTestService(t)

	pending := approvedDoctor("doc-1")
	pending.VerificationStatus = account.VerificationPending
	_, err := svc.Suggest(context.Background(), pending, SuggestionInput{Name: "Green Pharmacy", City: "Giza"})
	var fe *authz.ForbiddenError
	if !errors.As(err, &fe) || fe.Reason != authz.ReasonUnverified {
		t.Fatalf("pending doctor: expected unverified denial, got %v", err)
	}

	_, err = svc.Suggest(context.Background(), patient("pat-1"), SuggestionInput{Name: "Green Pharmacy", City: "Giza"})
	if !errors.As(err, &fe) || fe.Reason != authz.ReasonRoleMismatch {
		t.Fatalf("patient: expected role-mismatch denial, got %v", err)
	}
}

func TestSuggestAndListOwn(t *testing.T) {
	svc, _ := newTestService(t)
	doc := approvedDoctor("doc-1")

	sg, err := svc.Suggest(context.Background(), doc, SuggestionInput{
		Name:    "Al-Nile Pharmacy",
		Address: "123 Nile Street",
		City:    "Cairo",
		Notes:   "Good stock availability",
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if sg.Status != SuggestionPending || sg.DoctorID != doc.ID {
		t.Fatalf("suggestion = %+v", sg)
	}

	if _, err := svc.Suggest(context.Background(), doc, SuggestionInput{Name: "", City: "Cairo"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name: err = %v", err)
	}

	other := approvedDoctor("doc-2")
	if _, err := svc.Suggest(context.Background(), other, SuggestionInput{Name: "Green Pharmacy", City: "Giza"}); err != nil {
		t.Fatalf("Suggest other: %v", err)
	}

	mine, err := svc.MySuggestions(context.Background(), doc)
	if err != nil {
		t.Fatalf("MySuggestions: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != sg.ID {
		t.Fatalf("mine = %+v", mine)
	}
}

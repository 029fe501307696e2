package verify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
	"medrecord.org/internal/store/memory"
	"medrecord.org/internal/verify"
)

func seedAccount(t *testing.T, store *memory.Store, roles []account.Role, active account.Role, status account.VerificationStatus) account.Account {
	t.Helper()
	id := ids.New()
	acct, err := store.Create(context.Background(), account.Account{
		ID:                 id,
		NationalID:         "2" + id[len(id)-13:],
		Name:               "Test Account",
		Phone:              "0101234" + id[len(id)-4:],
		Roles:              roles,
		ActiveRole:         active,
		VerificationStatus: status,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acct
}

func seedAdmin(t *testing.T, store *memory.Store) account.Account {
	return seedAccount(t, store, []account.Role{account.RoleAdmin}, account.RoleAdmin, account.VerificationApproved)
}

func seedPatient(t *testing.T, store *memory.Store) account.Account {
	return seedAccount(t, store, []account.Role{account.RolePatient}, account.RolePatient, account.VerificationApproved)
}

func newService(t *testing.T, store *memory.Store, cfg verify.Config) *verify.Service {
	t.Helper()
	svc, err := verify.NewService(store, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSubmitAddsDoctorRoleAndPendingStatus(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)

	app, err := svc.Submit(context.Background(), patient, "s3://docs/license.pdf")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if app.Status != account.VerificationPending {
		t.Fatalf("application status = %s", app.Status)
	}

	acct, err := store.Get(context.Background(), patient.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !acct.HasRole(account.RoleDoctor) {
		t.Fatal("doctor role must be added on submission")
	}
	if !acct.HasRole(account.RolePatient) {
		t.Fatal("existing roles must be preserved")
	}
	if acct.VerificationStatus != account.VerificationPending {
		t.Fatalf("account status = %s", acct.VerificationStatus)
	}
	// Active role stays what it was; the caller opts into the doctor role
	// through a profile update.
	if acct.ActiveRole != account.RolePatient {
		t.Fatalf("active role = %s", acct.ActiveRole)
	}
}

func TestSubmitRejectsDuplicatePending(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)

	if _, err := svc.Submit(context.Background(), patient, ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), patient, ""); !errors.Is(err, verify.ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}
}

func TestDecideApprove(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)
	admin := seedAdmin(t, store)

	app, err := svc.Submit(context.Background(), patient, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	decided, err := svc.Decide(context.Background(), app.ID, account.VerificationApproved, &admin)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != account.VerificationApproved {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.DecidedBy != admin.ID {
		t.Fatalf("decided_by = %s", decided.DecidedBy)
	}
	if decided.DecidedAt == nil {
		t.Fatal("decided_at must be set")
	}

	acct, _ := store.Get(context.Background(), patient.ID)
	if acct.VerificationStatus != account.VerificationApproved {
		t.Fatalf("account status not mirrored, got %s", acct.VerificationStatus)
	}
}

func TestDecideRequiresAdminCapability(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)
	other := seedPatient(t, store)

	app, err := svc.Submit(context.Background(), patient, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Decide(context.Background(), app.ID, account.VerificationApproved, &other); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// denial happens before any state change
	got, _ := svc.Get(context.Background(), app.ID)
	if got.Status != account.VerificationPending {
		t.Fatalf("application mutated by denied decide: %s", got.Status)
	}
}

func TestDecideInvalidOutcome(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	admin := seedAdmin(t, store)
	if _, err := svc.Decide(context.Background(), "any", account.VerificationPending, &admin); !errors.Is(err, verify.ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestDecideAlreadyDecided(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)
	admin := seedAdmin(t, store)

	app, _ := svc.Submit(context.Background(), patient, "")
	if _, err := svc.Decide(context.Background(), app.ID, account.VerificationRejected, &admin); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, err := svc.Decide(context.Background(), app.ID, account.VerificationApproved, &admin); !errors.Is(err, verify.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	// First outcome sticks.
	got, _ := svc.Get(context.Background(), app.ID)
	if got.Status != account.VerificationRejected {
		t.Fatalf("status overwritten to %s", got.Status)
	}
}

// Two admins racing on the same application: exactly one decision wins and
// the other observes ErrAlreadyDecided.
func TestDecideConcurrent(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	patient := seedPatient(t, store)
	admin := seedAdmin(t, store)

	app, _ := svc.Submit(context.Background(), patient, "")

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		outcome := account.VerificationApproved
		if i%2 == 1 {
			outcome = account.VerificationRejected
		}
		wg.Add(1)
		go func(i int, outcome account.VerificationStatus) {
			defer wg.Done()
			_, errs[i] = svc.Decide(context.Background(), app.ID, outcome, &admin)
		}(i, outcome)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, verify.ErrAlreadyDecided):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}

	got, _ := svc.Get(context.Background(), app.ID)
	acct, _ := store.Get(context.Background(), patient.ID)
	if got.Status != acct.VerificationStatus {
		t.Fatalf("application %s and account %s diverged", got.Status, acct.VerificationStatus)
	}
}

func TestAutoApprove(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{AutoApprove: true})
	patient := seedPatient(t, store)

	app, err := svc.Submit(context.Background(), patient, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if app.Status != account.VerificationApproved {
		t.Fatalf("status = %s, want approved", app.Status)
	}
	if app.DecidedBy != verify.DecidedBySystem {
		t.Fatalf("decided_by = %s", app.DecidedBy)
	}
	acct, _ := store.Get(context.Background(), patient.ID)
	if acct.VerificationStatus != account.VerificationApproved {
		t.Fatalf("account status = %s", acct.VerificationStatus)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := memory.New()
	svc := newService(t, store, verify.Config{})
	admin := seedAdmin(t, store)
	first := seedPatient(t, store)
	second := seedPatient(t, store)

	a1, _ := svc.Submit(context.Background(), first, "")
	if _, err := svc.Submit(context.Background(), second, ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Decide(context.Background(), a1.ID, account.VerificationApproved, &admin); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	pending, err := svc.List(context.Background(), account.VerificationPending, &admin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	all, err := svc.List(context.Background(), "", &admin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"medrecord.org/internal/account"
	"medrecord.org/internal/verify"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func accountRows(acct account.Account) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "national_id", "name", "phone", "email", "date_of_birth",
		"password_hash", "roles", "active_role", "verification_status",
		"specialization", "city", "governorate", "created_at", "updated_at",
	}).AddRow(
		acct.ID, acct.NationalID, acct.Name, acct.Phone, acct.Email,
		acct.DateOfBirth, acct.PasswordHash, joinRoles(acct.Roles),
		string(acct.ActiveRole), string(acct.VerificationStatus),
		acct.Specialization, acct.City, acct.Governorate,
		acct.CreatedAt, acct.UpdatedAt,
	)
}

func TestGetAccount(t *testing.T) {
	store, mock := newMockStore(t)
	want := account.Account{
		ID:                 "acct-1",
		NationalID:         "29805241234567",
		Name:               "Omar Hassan",
		Phone:              "01012345678",
		Roles:              []account.Role{account.RolePatient, account.RoleDoctor},
		ActiveRole:         account.RoleDoctor,
		VerificationStatus: account.VerificationApproved,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	mock.ExpectQuery("select (.+) from accounts where id=").
		WithArgs("acct-1").
		WillReturnRows(accountRows(want))

	got, err := store.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != want.ID || len(got.Roles) != 2 || got.Roles[1] != account.RoleDoctor {
		t.Fatalf("got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select (.+) from accounts where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateActiveRoleOutsideRoleSet(t *testing.T) {
	store, mock := newMockStore(t)
	acct := account.Account{
		ID:         "acct-1",
		NationalID: "29805241234567",
		Roles:      []account.Role{account.RolePatient},
		ActiveRole: account.RolePatient,
	}
	mock.ExpectExec("update accounts").
		WithArgs("acct-1", "doctor").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select (.+) from accounts where id=").
		WithArgs("acct-1").
		WillReturnRows(accountRows(acct))

	if _, err := store.UpdateActiveRole(context.Background(), "acct-1", account.RoleDoctor); !errors.Is(err, account.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func applicationRows(app verify.Application) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "document_ref", "status", "submitted_at", "decided_at", "decided_by",
	})
	var decidedAt any
	if app.DecidedAt != nil {
		decidedAt = *app.DecidedAt
	}
	rows.AddRow(app.ID, app.AccountID, app.DocumentRef, string(app.Status), app.SubmittedAt, decidedAt, app.DecidedBy)
	return rows
}

func TestDecideWinsCAS(t *testing.T) {
	store, mock := newMockStore(t)
	decidedAt := time.Now().UTC()
	app := verify.Application{
		ID:          "app-1",
		AccountID:   "acct-1",
		Status:      account.VerificationApproved,
		SubmittedAt: decidedAt.Add(-time.Hour),
		DecidedAt:   &decidedAt,
		DecidedBy:   "admin-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec("update applications").
		WithArgs("app-1", "approved", "admin-1", decidedAt, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select (.+) from applications where id=").
		WithArgs("app-1").
		WillReturnRows(applicationRows(app))
	mock.ExpectExec("update accounts set verification_status").
		WithArgs("acct-1", "approved").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := store.Decide(context.Background(), "app-1", account.VerificationApproved, "admin-1", decidedAt)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got.Status != account.VerificationApproved || got.DecidedBy != "admin-1" {
		t.Fatalf("got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// The second of two concurrent decisions matches zero rows and must surface
// ErrAlreadyDecided without touching the account.
func TestDecideLosesCAS(t *testing.T) {
	store, mock := newMockStore(t)
	decidedAt := time.Now().UTC()
	terminal := verify.Application{
		ID:          "app-1",
		AccountID:   "acct-1",
		Status:      account.VerificationRejected,
		SubmittedAt: decidedAt.Add(-time.Hour),
		DecidedAt:   &decidedAt,
		DecidedBy:   "admin-2",
	}

	mock.ExpectBegin()
	mock.ExpectExec("update applications").
		WithArgs("app-1", "approved", "admin-1", decidedAt, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select (.+) from applications where id=").
		WithArgs("app-1").
		WillReturnRows(applicationRows(terminal))
	mock.ExpectRollback()

	_, err := store.Decide(context.Background(), "app-1", account.VerificationApproved, "admin-1", decidedAt)
	if !errors.Is(err, verify.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitRollsBackOnMissingAccount(t *testing.T) {
	store, mock := newMockStore(t)
	app := verify.Application{
		ID:          "app-1",
		AccountID:   "ghost",
		Status:      account.VerificationPending,
		SubmittedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("insert into applications").
		WithArgs("app-1", "ghost", "", "pending", app.SubmittedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update accounts").
		WithArgs("ghost", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := store.Submit(context.Background(), app); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

package clinical

import (
	"context"
	"errors"
	"testing"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
)

func approvedDoctor(id string) *account.Account {
	return &account.Account{
		ID:                 id,
		Roles:              []account.Role{account.RolePatient, account.RoleDoctor},
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

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestIssueRequiresVerifiedDoctor(t *testing.T) {
	svc := newTestService(t)
	pending := approvedDoctor("doc-1")
	pending.VerificationStatus = account.VerificationPending

	_, err := svc.Issue(context.Background(), pending, PrescriptionInput{PatientID: "pat-1", Medication: "Amoxicillin"})
	var fe *authz.ForbiddenError
	if !errors.As(err, &fe) || fe.Reason != authz.ReasonUnverified {
		t.Fatalf("expected unverified denial, got %v", err)
	}
}

func TestIssueAndListPrescriptions(t *testing.T) {
	svc := newTestService(t)
	doc := approvedDoctor("doc-1")
	pat := patient("pat-1")

	p, err := svc.Issue(context.Background(), doc, PrescriptionInput{
		PatientID:  pat.ID,
		Medication: "Amoxicillin",
		Dosage:     "500mg",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if p.DoctorID != doc.ID || p.IssuedAt.IsZero() {
		t.Fatalf("bad prescription %+v", p)
	}

	// patient reads own records
	own, err := svc.ListPrescriptions(context.Background(), pat, "")
	if err != nil {
		t.Fatalf("ListPrescriptions: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("len = %d", len(own))
	}

	// doctor reads the patient's records
	viewed, err := svc.ListPrescriptions(context.Background(), doc, pat.ID)
	if err != nil {
		t.Fatalf("ListPrescriptions as doctor: %v", err)
	}
	if len(viewed) != 1 {
		t.Fatalf("len = %d", len(viewed))
	}

	// a patient cannot read another patient's records
	other := patient("pat-2")
	if _, err := svc.ListPrescriptions(context.Background(), other, pat.ID); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestIssueValidatesInput(t *testing.T) {
	svc := newTestService(t)
	doc := approvedDoctor("doc-1")
	if _, err := svc.Issue(context.Background(), doc, PrescriptionInput{PatientID: "pat-1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	svc := newTestService(t)
	doc := approvedDoctor("doc-1")
	pat := patient("pat-1")

	appt, err := svc.RequestAppointment(context.Background(), pat, doc.ID, time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatalf("RequestAppointment: %v", err)
	}
	if appt.Status != AppointmentRequested {
		t.Fatalf("status = %s", appt.Status)
	}

	// only the booked doctor may confirm
	otherDoc := approvedDoctor("doc-2")
	if _, err := svc.SetAppointmentStatus(context.Background(), otherDoc, appt.ID, AppointmentConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign doctor, got %v", err)
	}

	confirmed, err := svc.SetAppointmentStatus(context.Background(), doc, appt.ID, AppointmentConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != AppointmentConfirmed {
		t.Fatalf("status = %s", confirmed.Status)
	}

	// confirming twice loses the compare-and-set
	if _, err := svc.SetAppointmentStatus(context.Background(), doc, appt.ID, AppointmentConfirmed); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}

	// the patient may cancel a confirmed appointment
	cancelled, err := svc.SetAppointmentStatus(context.Background(), pat, appt.ID, AppointmentCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != AppointmentCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}

	// cancelled is terminal
	if _, err := svc.SetAppointmentStatus(context.Background(), doc, appt.ID, AppointmentCancelled); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
}

func TestRequestAppointmentRejectsPast(t *testing.T) {
	svc := newTestService(t)
	pat := patient("pat-1")
	if _, err := svc.RequestAppointment(context.Background(), pat, "doc-1", time.Now().Add(-time.Hour)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListAppointmentsByParticipant(t *testing.T) {
	svc := newTestService(t)
	doc := approvedDoctor("doc-1")
	pat := patient("pat-1")
	other := patient("pat-2")

	if _, err := svc.RequestAppointment(context.Background(), pat, doc.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RequestAppointment: %v", err)
	}

	forDoc, err := svc.ListAppointments(context.Background(), doc)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(forDoc) != 1 {
		t.Fatalf("doctor sees %d", len(forDoc))
	}
	forOther, err := svc.ListAppointments(context.Background(), other)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(forOther) != 0 {
		t.Fatalf("stranger sees %d", len(forOther))
	}
}

package clinical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
)

// Service gates clinical operations behind the authorization engine. Every
// call takes the caller's freshly loaded account; nothing is cached.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("clinical store is required")
	}
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}, nil
}

// PrescriptionInput carries the fields a doctor submits when prescribing.
type PrescriptionInput struct {
	PatientID  string
	Medication string
	Dosage     string
	Notes      string
}

// Issue records a prescription. Requires the doctor:prescribe capability, so
// unverified or inactive doctor roles are denied before any write.
func (s *Service) Issue(ctx context.Context, doctor *account.Account, input PrescriptionInput) (Prescription, error) {
	if err := authz.Decide(doctor, authz.CapDoctorPrescribe); err != nil {
		return Prescription{}, err
	}
	input.PatientID = strings.TrimSpace(input.PatientID)
	input.Medication = strings.TrimSpace(input.Medication)
	if input.PatientID == "" || input.Medication == "" {
		return Prescription{}, fmt.Errorf("%w: patient_id and medication are required", ErrInvalidInput)
	}
	return s.store.CreatePrescription(ctx, Prescription{
		ID:         ids.New(),
		DoctorID:   doctor.ID,
		PatientID:  input.PatientID,
		Medication: input.Medication,
		Dosage:     strings.TrimSpace(input.Dosage),
		Notes:      strings.TrimSpace(input.Notes),
		IssuedAt:   s.now(),
	})
}

// ListPrescriptions returns a patient's prescriptions. Patients read their own
// record; doctors need the doctor:view-patient capability.
func (s *Service) ListPrescriptions(ctx context.Context, actor *account.Account, patientID string) ([]Prescription, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || patientID == actor.ID {
		if err := authz.Decide(actor, authz.CapPatientRecords); err != nil {
			return nil, err
		}
		return s.store.ListPrescriptionsForPatient(ctx, actor.ID)
	}
	if err := authz.Decide(actor, authz.CapDoctorViewPatient); err != nil {
		return nil, err
	}
	return s.store.ListPrescriptionsForPatient(ctx, patientID)
}

// RequestAppointment books a requested slot with a doctor on behalf of the
// calling patient.
func (s *Service) RequestAppointment(ctx context.Context, patient *account.Account, doctorID string, at time.Time) (Appointment, error) {
	if err := authz.Decide(patient, authz.CapPatientAppointments); err != nil {
		return Appointment{}, err
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return Appointment{}, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	if at.Before(s.now()) {
		return Appointment{}, fmt.Errorf("%w: scheduled_at must be in the future", ErrInvalidInput)
	}
	return s.store.CreateAppointment(ctx, Appointment{
		ID:          ids.New(),
		DoctorID:    doctorID,
		PatientID:   patient.ID,
		ScheduledAt: at,
		Status:      AppointmentRequested,
		CreatedAt:   s.now(),
	})
}

// ListAppointments returns appointments where the caller is a participant.
func (s *Service) ListAppointments(ctx context.Context, actor *account.Account) ([]Appointment, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	var capability authz.Capability
	switch actor.ActiveRole {
	case account.RoleDoctor:
		capability = authz.CapDoctorAppointments
	default:
		capability = authz.CapPatientAppointments
	}
	if err := authz.Decide(actor, capability); err != nil {
		return nil, err
	}
	return s.store.ListAppointmentsFor(ctx, actor.ID)
}

// SetAppointmentStatus moves an appointment to confirmed or cancelled.
// Doctors confirm; either participant may cancel. The transition is a
// compare-and-set against the caller-observed status.
func (s *Service) SetAppointmentStatus(ctx context.Context, actor *account.Account, id string, next AppointmentStatus) (Appointment, error) {
	if actor == nil {
		return Appointment{}, authz.ErrUnauthenticated
	}
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return Appointment{}, err
	}

	switch next {
	case AppointmentConfirmed:
		if err := authz.Decide(actor, authz.CapDoctorAppointments); err != nil {
			return Appointment{}, err
		}
		if appt.DoctorID != actor.ID {
			return Appointment{}, ErrNotFound
		}
		return s.store.CASAppointmentStatus(ctx, id, AppointmentRequested, AppointmentConfirmed)
	case AppointmentCancelled:
		var capability authz.Capability
		switch actor.ID {
		case appt.DoctorID:
			capability = authz.CapDoctorAppointments
		case appt.PatientID:
			capability = authz.CapPatientAppointments
		default:
			return Appointment{}, ErrNotFound
		}
		if err := authz.Decide(actor, capability); err != nil {
			return Appointment{}, err
		}
		if appt.Status == AppointmentCancelled {
			return Appointment{}, ErrStatusChanged
		}
		return s.store.CASAppointmentStatus(ctx, id, appt.Status, AppointmentCancelled)
	default:
		return Appointment{}, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, next)
	}
}

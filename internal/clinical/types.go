package clinical

import (
	"context"
	"errors"
	"time"
)

// Prescription is issued by a verified doctor for a patient.
type Prescription struct {
	ID         string    `json:"id"`
	DoctorID   string    `json:"doctor_id"`
	PatientID  string    `json:"patient_id"`
	Medication string    `json:"medication"`
	Dosage     string    `json:"dosage"`
	Notes      string    `json:"notes,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
}

// AppointmentStatus follows requested -> confirmed | cancelled. Confirmed
// appointments may still be cancelled; cancelled is terminal.
type AppointmentStatus string

const (
	AppointmentRequested AppointmentStatus = "requested"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment links a patient and a doctor at a scheduled time.
type Appointment struct {
	ID          string            `json:"id"`
	DoctorID    string            `json:"doctor_id"`
	PatientID   string            `json:"patient_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Status      AppointmentStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Rating is one patient's review of a doctor. A patient holds at most one
// rating per doctor; re-rating replaces the earlier entry.
type Rating struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	Stars     int       `json:"stars"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates a doctor's ratings.
type RatingSummary struct {
	DoctorID string  `json:"doctor_id"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

var (
	ErrNotFound      = errors.New("clinical: not found")
	ErrInvalidInput  = errors.New("clinical: invalid input")
	ErrStatusChanged = errors.New("clinical: appointment status already changed")
)

// Store defines persistence for prescriptions and appointments. Appointment
// status updates are compare-and-set so a stale confirm or cancel loses
// cleanly instead of overwriting.
type Store interface {
	CreatePrescription(ctx context.Context, p Prescription) (Prescription, error)
	ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]Prescription, error)
	CreateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointmentsFor(ctx context.Context, accountID string) ([]Appointment, error)
	CASAppointmentStatus(ctx context.Context, id string, expected, next AppointmentStatus) (Appointment, error)
	// UpsertRating replaces any earlier rating by the same patient for the
	// same doctor.
	UpsertRating(ctx context.Context, rt Rating) (Rating, error)
	SummarizeRatings(ctx context.Context, doctorID string) (RatingSummary, error)
}

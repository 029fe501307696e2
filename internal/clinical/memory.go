package clinical

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu            sync.RWMutex
	prescriptions []Prescription
	appointments  map[string]*Appointment
	ratings       map[string]Rating // doctorID + "/" + patientID
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		appointments: make(map[string]*Appointment),
		ratings:      make(map[string]Rating),
	}
}

func (s *InMemory) CreatePrescription(ctx context.Context, p Prescription) (Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prescriptions = append(s.prescriptions, p)
	return p, nil
}

func (s *InMemory) ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Prescription
	for _, p := range s.prescriptions {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemory) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := a
	s.appointments[a.ID] = &stored
	return a, nil
}

func (s *InMemory) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return *appt, nil
}

func (s *InMemory) ListAppointmentsFor(ctx context.Context, accountID string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, appt := range s.appointments {
		if appt.DoctorID == accountID || appt.PatientID == accountID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (s *InMemory) CASAppointmentStatus(ctx context.Context, id string, expected, next AppointmentStatus) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	if appt.Status != expected {
		return Appointment{}, ErrStatusChanged
	}
	appt.Status = next
	return *appt, nil
}

func (s *InMemory) UpsertRating(ctx context.Context, rt Rating) (Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[rt.DoctorID+"/"+rt.PatientID] = rt
	return rt, nil
}

func (s *InMemory) SummarizeRatings(ctx context.Context, doctorID string) (RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := RatingSummary{DoctorID: doctorID}
	total := 0
	for _, rt := range s.ratings {
		if rt.DoctorID == doctorID {
			total += rt.Stars
			sum.Count++
		}
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"medrecord.org/internal/audit"
	"medrecord.org/internal/clinical"
	"medrecord.org/internal/message"
)

type prescriptionRequest struct {
	PatientID  string `json:"patient_id"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Notes      string `json:"notes"`
}

func (a *API) handlePrescriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.issuePrescription(w, r)
	case http.MethodGet:
		a.listPrescriptions(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) issuePrescription(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req prescriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.clinical.Issue(r.Context(), acct, clinical.PrescriptionInput{
		PatientID:  req.PatientID,
		Medication: req.Medication,
		Dosage:     req.Dosage,
		Notes:      req.Notes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinical.prescription.issue", map[string]any{
		"prescription_id": p.ID,
		"doctor_id":       p.DoctorID,
		"patient_id":      p.PatientID,
	})
	a.messages.Notify(r.Context(), p.PatientID, message.KindPrescription,
		"a prescription for "+p.Medication+" was issued to you")
	writeJSON(w, http.StatusCreated, p)
}

// listPrescriptions returns the caller's own prescriptions, or another
// patient's when ?patient_id= is set and the caller holds doctor access.
func (a *API) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	patientID := strings.TrimSpace(r.URL.Query().Get("patient_id"))
	if patientID == "" {
		patientID = acct.ID
	}
	list, err := a.clinical.ListPrescriptions(r.Context(), acct, patientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": list})
}

type appointmentRequest struct {
	DoctorID    string `json:"doctor_id"`
	ScheduledAt string `json:"scheduled_at"`
}

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.requestAppointment(w, r)
	case http.MethodGet:
		a.listAppointments(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) requestAppointment(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "scheduled_at must be RFC 3339")
		return
	}
	appt, err := a.clinical.RequestAppointment(r.Context(), acct, req.DoctorID, at)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinical.appointment.request", map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
	})
	writeJSON(w, http.StatusCreated, appt)
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	list, err := a.clinical.ListAppointments(r.Context(), acct)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

type appointmentStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/appointments/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req appointmentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var next clinical.AppointmentStatus
	switch clinical.AppointmentStatus(req.Status) {
	case clinical.AppointmentConfirmed:
		next = clinical.AppointmentConfirmed
	case clinical.AppointmentCancelled:
		next = clinical.AppointmentCancelled
	default:
		writeError(w, r, http.StatusBadRequest, "status must be confirmed or cancelled")
		return
	}
	appt, err := a.clinical.SetAppointmentStatus(r.Context(), acct, id, next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinical.appointment.status", map[string]any{
		"appointment_id": appt.ID,
		"status":         string(appt.Status),
		"actor_id":       acct.ID,
	})
	writeJSON(w, http.StatusOK, appt)
}

package httpapi

import (
	"net/http"
	"strings"

	"medrecord.org/internal/audit"
)

type ratingRequest struct {
	DoctorID string `json:"doctor_id"`
	Stars    int    `json:"stars"`
	Review   string `json:"review"`
}

// handleRatings records the caller's rating of a doctor.
func (a *API) handleRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rating, err := a.clinical.RateDoctor(r.Context(), acct, req.DoctorID, req.Stars, req.Review)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "clinical.rating.submit", map[string]any{
		"account_id": acct.ID,
		"doctor_id":  rating.DoctorID,
		"stars":      rating.Stars,
	})
	writeJSON(w, http.StatusCreated, rating)
}

// handleDoctorResource serves GET /v1/doctors/{id}/rating.
func (a *API) handleDoctorResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/doctors/")
	doctorID, found := strings.CutSuffix(rest, "/rating")
	if !found || doctorID == "" || strings.Contains(doctorID, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	summary, err := a.clinical.DoctorRating(r.Context(), acct, doctorID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

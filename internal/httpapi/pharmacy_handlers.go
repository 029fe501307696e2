package httpapi

import (
	"net/http"

	"medrecord.org/internal/audit"
	"medrecord.org/internal/pharmacy"
)

// handlePharmacies lists the pharmacy directory, optionally filtered by
// ?city=.
func (a *API) handlePharmacies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	list, err := a.pharmacies.List(r.Context(), acct, r.URL.Query().Get("city"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []pharmacy.Pharmacy{}
	}
	writeJSON(w, http.StatusOK, list)
}

type pharmacySuggestionRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Notes     string  `json:"notes"`
}

// handlePharmacySuggestions lets a verified doctor propose directory entries
// and list their own proposals.
func (a *API) handlePharmacySuggestions(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req pharmacySuggestionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sg, err := a.pharmacies.Suggest(r.Context(), acct, pharmacy.SuggestionInput{
			Name:      req.Name,
			Address:   req.Address,
			City:      req.City,
			Phone:     req.Phone,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Notes:     req.Notes,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "pharmacy.suggestion.submit", map[string]any{
			"account_id":    acct.ID,
			"suggestion_id": sg.ID,
		})
		writeJSON(w, http.StatusCreated, sg)
	case http.MethodGet:
		list, err := a.pharmacies.MySuggestions(r.Context(), acct)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if list == nil {
			list = []pharmacy.Suggestion{}
		}
		writeJSON(w, http.StatusOK, list)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

package httpapi

import (
	"net/http"

	"medrecord.org/internal/account"
	"medrecord.org/internal/audit"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/message"
)

type profileUpdateRequest struct {
	ActiveRole  *string `json:"active_role"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	City        *string `json:"city"`
	Governorate *string `json:"governorate"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getProfile(w, r)
	case http.MethodPut:
		a.updateProfile(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := authz.Decide(acct, authz.CapProfileEdit); err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated := *acct
	// Role switching is checked against the role set only; a pending doctor
	// may activate the doctor role but stays locked out of doctor-scoped
	// operations until approved.
	if req.ActiveRole != nil {
		role, err := account.ParseRole(*req.ActiveRole)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		updated, err = a.accounts.SwitchRole(r.Context(), acct.ID, role)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "account.switch_role", map[string]any{
			"account_id":  acct.ID,
			"active_role": string(role),
		})
	}

	if req.Name != nil || req.Email != nil || req.City != nil || req.Governorate != nil {
		updated, err = a.accounts.UpdateProfile(r.Context(), acct.ID, account.ProfileUpdate{
			Name:        req.Name,
			Email:       req.Email,
			City:        req.City,
			Governorate: req.Governorate,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, updated)
}

type applyRequest struct {
	DocumentRef string `json:"document_ref"`
}

// handleApply opens a doctor verification application for the caller.
func (a *API) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	app, err := a.verify.Submit(r.Context(), *acct, req.DocumentRef)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "verify.application.submit", map[string]any{
		"account_id":     acct.ID,
		"application_id": app.ID,
	})
	if app.Status != account.VerificationPending {
		a.messages.Notify(r.Context(), acct.ID, message.KindApplication,
			"your doctor application was "+string(app.Status))
	}
	writeJSON(w, http.StatusCreated, app)
}

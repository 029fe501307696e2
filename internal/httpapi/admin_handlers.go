package httpapi

import (
	"net/http"
	"strings"

	"medrecord.org/internal/account"
	"medrecord.org/internal/audit"
	"medrecord.org/internal/message"
)

func (a *API) handleApplications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var status account.VerificationStatus
	if q := strings.TrimSpace(r.URL.Query().Get("status")); q != "" {
		parsed, err := account.ParseVerificationStatus(q)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown status filter")
			return
		}
		status = parsed
	}
	apps, err := a.verify.List(r.Context(), status, acct)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

type decisionRequest struct {
	Status string `json:"status"`
}

func (a *API) handleApplicationResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/admin/applications/")
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
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := account.ParseVerificationStatus(req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	app, err := a.verify.Decide(r.Context(), id, outcome, acct)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "verify.application.decide", map[string]any{
		"application_id": app.ID,
		"account_id":     app.AccountID,
		"outcome":        string(app.Status),
		"decided_by":     acct.ID,
	})
	a.messages.Notify(r.Context(), app.AccountID, message.KindApplication,
		"your doctor application was "+string(app.Status))
	writeJSON(w, http.StatusOK, app)
}

package httpapi

import (
	"net/http"
	"strings"

	"medrecord.org/internal/account"
	"medrecord.org/internal/audit"
	"medrecord.org/internal/authz"
)

type familyMemberRequest struct {
	FullName          string   `json:"full_name"`
	Age               int      `json:"age"`
	Gender            string   `json:"gender"`
	Relationship      string   `json:"relationship"`
	BloodType         string   `json:"blood_type"`
	Allergies         []string `json:"allergies"`
	ChronicConditions []string `json:"chronic_conditions"`
}

func (req familyMemberRequest) input() account.FamilyInput {
	return account.FamilyInput{
		FullName:          req.FullName,
		Age:               req.Age,
		Gender:            req.Gender,
		Relationship:      req.Relationship,
		BloodType:         req.BloodType,
		Allergies:         req.Allergies,
		ChronicConditions: req.ChronicConditions,
	}
}

func (a *API) handleFamily(w http.ResponseWriter, r *http.Request) {
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := authz.Decide(acct, authz.CapProfileEdit); err != nil {
		writeDomainError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		members, err := a.accounts.FamilyMembers(r.Context(), acct.ID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if members == nil {
			members = []account.FamilyMember{}
		}
		writeJSON(w, http.StatusOK, members)
	case http.MethodPost:
		var req familyMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		member, err := a.accounts.AddFamilyMember(r.Context(), acct.ID, req.input())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "account.family.add", map[string]any{
			"account_id": acct.ID,
			"member_id":  member.ID,
		})
		writeJSON(w, http.StatusCreated, member)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleFamilyResource serves GET/PUT/DELETE /v1/family/{id}.
func (a *API) handleFamilyResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/family/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	acct, err := a.currentAccount(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := authz.Decide(acct, authz.CapProfileEdit); err != nil {
		writeDomainError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		member, err := a.accounts.FamilyMemberByID(r.Context(), acct.ID, id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodPut:
		var req familyMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		member, err := a.accounts.UpdateFamilyMember(r.Context(), acct.ID, id, req.input())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodDelete:
		if err := a.accounts.RemoveFamilyMember(r.Context(), acct.ID, id); err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "account.family.remove", map[string]any{
			"account_id": acct.ID,
			"member_id":  id,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

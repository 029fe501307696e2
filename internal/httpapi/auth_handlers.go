package httpapi

import (
	"net/http"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/audit"
	"medrecord.org/internal/auth"
)

const tokenTTL = 24 * time.Hour

type registerRequest struct {
	NationalID     string `json:"national_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	DateOfBirth    string `json:"date_of_birth"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	City           string `json:"city"`
	Governorate    string `json:"governorate"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   account.Account `json:"account"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// An absent role registers a patient; the service applies the default.
	var role account.Role
	if req.Role != "" {
		var err error
		if role, err = account.ParseRole(req.Role); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		return
	}
	acct, err := a.accounts.Register(r.Context(), account.Registration{
		NationalID:     req.NationalID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Password:       req.Password,
		DateOfBirth:    dob,
		Role:           role,
		Specialization: req.Specialization,
		City:           req.City,
		Governorate:    req.Governorate,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	// A doctor registration opens a verification application as part of
	// the same request.
	if role == account.RoleDoctor {
		if _, err := a.verify.Submit(r.Context(), acct, ""); err != nil {
			writeDomainError(w, r, err)
			return
		}
		// Reload so the response reflects an auto-approve decision.
		if acct, err = a.accounts.Get(r.Context(), acct.ID); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	token, expires, err := issueToken(acct)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}
	_ = audit.LogEvent(r.Context(), "account.register", map[string]any{
		"account_id": acct.ID,
		"role":       string(acct.ActiveRole),
	})
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, ExpiresAt: expires, Account: acct})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	token, expires, err := issueToken(acct)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}
	_ = audit.LogEvent(r.Context(), "account.login", map[string]any{
		"account_id": acct.ID,
	})
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires, Account: acct})
}

func issueToken(acct account.Account) (string, time.Time, error) {
	roles := make([]string, 0, len(acct.Roles))
	for _, role := range acct.Roles {
		roles = append(roles, string(role))
	}
	expires := time.Now().Add(tokenTTL)
	token, err := auth.GenerateToken(acct.ID, roles, tokenTTL)
	return token, expires, err
}

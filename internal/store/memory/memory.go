// Package memory implements every store interface in-process. A single mutex
// guards all record types so the cross-table updates of the verification
// workflow apply atomically, mirroring the transactional Postgres store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/verify"
)

type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*account.Account
	byLogin      map[string]string // national ID or phone -> account ID
	applications map[string]*verify.Application
	appByAccount map[string]string // account ID -> latest application ID
	family       map[string]*account.FamilyMember
}

var (
	_ account.Store = (*Store)(nil)
	_ verify.Store  = (*Store)(nil)
)

func New() *Store {
	return &Store{
		accounts:     make(map[string]*account.Account),
		byLogin:      make(map[string]string),
		applications: make(map[string]*verify.Application),
		appByAccount: make(map[string]string),
		family:       make(map[string]*account.FamilyMember),
	}
}

// --- account.Store ---

func (s *Store) Create(ctx context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return account.Account{}, account.ErrConflict
	}
	if _, ok := s.byLogin[acct.NationalID]; ok {
		return account.Account{}, account.ErrConflict
	}
	if acct.Phone != "" {
		if _, ok := s.byLogin[acct.Phone]; ok {
			return account.Account{}, account.ErrConflict
		}
	}

	stored := acct
	stored.Roles = append([]account.Role(nil), acct.Roles...)
	s.accounts[acct.ID] = &stored
	s.byLogin[acct.NationalID] = acct.ID
	if acct.Phone != "" {
		s.byLogin[acct.Phone] = acct.ID
	}
	return copyAccount(&stored), nil
}

func (s *Store) Get(ctx context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return copyAccount(acct), nil
}

func (s *Store) GetByLogin(ctx context.Context, login string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byLogin[login]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return copyAccount(s.accounts[id]), nil
}

func (s *Store) UpdateActiveRole(ctx context.Context, id string, role account.Role) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if !acct.HasRole(role) {
		return account.Account{}, fmt.Errorf("%w: %s not in role set", account.ErrInvalidRole, role)
	}
	acct.ActiveRole = role
	acct.UpdatedAt = time.Now().UTC()
	return copyAccount(acct), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd account.ProfileUpdate) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if upd.Name != nil {
		acct.Name = *upd.Name
	}
	if upd.Email != nil {
		acct.Email = *upd.Email
	}
	if upd.City != nil {
		acct.City = *upd.City
	}
	if upd.Governorate != nil {
		acct.Governorate = *upd.Governorate
	}
	acct.UpdatedAt = time.Now().UTC()
	return copyAccount(acct), nil
}

// --- account.FamilyStore ---

func (s *Store) AddFamilyMember(ctx context.Context, m account.FamilyMember) (account.FamilyMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyFamilyMember(&m)
	s.family[m.ID] = &stored
	return copyFamilyMember(&stored), nil
}

func (s *Store) GetFamilyMember(ctx context.Context, accountID, id string) (account.FamilyMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.family[id]
	if !ok || m.AccountID != accountID {
		return account.FamilyMember{}, account.ErrNotFound
	}
	return copyFamilyMember(m), nil
}

func (s *Store) ListFamilyMembers(ctx context.Context, accountID string) ([]account.FamilyMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []account.FamilyMember
	for _, m := range s.family {
		if m.AccountID == accountID {
			out = append(out, copyFamilyMember(m))
		}
	}
	return out, nil
}

func (s *Store) UpdateFamilyMember(ctx context.Context, m account.FamilyMember) (account.FamilyMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.family[m.ID]
	if !ok || current.AccountID != m.AccountID {
		return account.FamilyMember{}, account.ErrNotFound
	}
	stored := copyFamilyMember(&m)
	s.family[m.ID] = &stored
	return copyFamilyMember(&stored), nil
}

func (s *Store) RemoveFamilyMember(ctx context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.family[id]
	if !ok || m.AccountID != accountID {
		return account.ErrNotFound
	}
	delete(s.family, id)
	return nil
}

// --- verify.Store ---

func (s *Store) Submit(ctx context.Context, app verify.Application) (verify.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[app.AccountID]
	if !ok {
		return verify.Application{}, account.ErrNotFound
	}
	if prevID, ok := s.appByAccount[app.AccountID]; ok {
		if prev := s.applications[prevID]; prev != nil && prev.Status == account.VerificationPending {
			return verify.Application{}, verify.ErrAlreadyPending
		}
	}

	if !acct.HasRole(account.RoleDoctor) {
		acct.Roles = append(acct.Roles, account.RoleDoctor)
	}
	acct.VerificationStatus = account.VerificationPending
	acct.UpdatedAt = time.Now().UTC()

	stored := app
	s.applications[app.ID] = &stored
	s.appByAccount[app.AccountID] = app.ID
	return stored, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (verify.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return verify.Application{}, verify.ErrNotFound
	}
	return *app, nil
}

func (s *Store) List(ctx context.Context, status account.VerificationStatus) ([]verify.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []verify.Application
	for _, app := range s.applications {
		if status != "" && app.Status != status {
			continue
		}
		out = append(out, *app)
	}
	return out, nil
}

func (s *Store) Decide(ctx context.Context, id string, outcome account.VerificationStatus, decidedBy string, decidedAt time.Time) (verify.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return verify.Application{}, verify.ErrNotFound
	}
	// Compare-and-set: only a pending application can transition; the loser
	// of a concurrent decide observes the terminal state.
	if app.Status != account.VerificationPending {
		return verify.Application{}, verify.ErrAlreadyDecided
	}

	app.Status = outcome
	app.DecidedAt = &decidedAt
	app.DecidedBy = decidedBy
	if acct, ok := s.accounts[app.AccountID]; ok {
		acct.VerificationStatus = outcome
		acct.UpdatedAt = decidedAt
	}
	return *app, nil
}

func copyAccount(acct *account.Account) account.Account {
	out := *acct
	out.Roles = append([]account.Role(nil), acct.Roles...)
	return out
}

func copyFamilyMember(m *account.FamilyMember) account.FamilyMember {
	out := *m
	out.Allergies = append([]string(nil), m.Allergies...)
	out.ChronicConditions = append([]string(nil), m.ChronicConditions...)
	return out
}

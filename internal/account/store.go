package account

import "context"

// Store defines persistence operations for accounts. Role and verification
// state must be read fresh at decision time, so callers fetch rather than
// cache across requests.
type Store interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	// GetByLogin resolves a national ID or phone number to an account.
	GetByLogin(ctx context.Context, login string) (Account, error)
	// UpdateActiveRole persists a new active role. The store rejects roles
	// outside the stored role set so the activeRole ∈ roles invariant holds
	// even under concurrent switches.
	UpdateActiveRole(ctx context.Context, id string, role Role) (Account, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (Account, error)

	FamilyStore
}

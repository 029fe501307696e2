// Package verify tracks doctor applications from submission through the admin
// decision. Applications transition pending -> approved|rejected exactly once;
// both terminal states are final.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
)

// Application is a pending request for doctor-role verification.
type Application struct {
	ID          string                     `json:"id"`
	AccountID   string                     `json:"account_id"`
	DocumentRef string                     `json:"document_ref"`
	Status      account.VerificationStatus `json:"status"`
	SubmittedAt time.Time                  `json:"submitted_at"`
	DecidedAt   *time.Time                 `json:"decided_at,omitempty"`
	DecidedBy   string                     `json:"decided_by,omitempty"`
}

var (
	ErrNotFound       = errors.New("verify: application not found")
	ErrAlreadyDecided = errors.New("verify: application already decided")
	ErrInvalidOutcome = errors.New("verify: invalid outcome")
	ErrAlreadyPending = errors.New("verify: application already pending")
)

// DecidedBySystem marks decisions applied by the auto-approve policy rather
// than an admin account.
const DecidedBySystem = "system:auto-approve"

// Store defines persistence for applications. Both mutating operations span
// the application row and the mirrored account verification status, and must
// apply as a single atomic unit.
type Store interface {
	// Submit creates the application, extends the account's role set with
	// doctor (never removing existing roles) and sets the account
	// verification status to pending. Returns ErrAlreadyPending when the
	// account already has an undecided application.
	Submit(ctx context.Context, app Application) (Application, error)
	GetApplication(ctx context.Context, id string) (Application, error)
	// List returns applications filtered by status; an empty status lists all.
	List(ctx context.Context, status account.VerificationStatus) ([]Application, error)
	// Decide performs a compare-and-set of the application status from
	// pending to outcome and mirrors the outcome onto the account. The
	// second of two concurrent calls observes ErrAlreadyDecided.
	Decide(ctx context.Context, id string, outcome account.VerificationStatus, decidedBy string, decidedAt time.Time) (Application, error)
}

// Config carries the one policy switch consulted by the workflow.
type Config struct {
	// AutoApprove approves every submitted application immediately. Intended
	// for development environments only.
	AutoApprove bool
}

// Service implements the verification workflow over a Store.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewService(store Store, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("verify store is required")
	}
	return &Service{store: store, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Submit creates a pending application for the account. When the auto-approve
// policy is on, the application is decided immediately through the same CAS
// path an admin decision takes.
func (s *Service) Submit(ctx context.Context, acct account.Account, documentRef string) (Application, error) {
	if acct.ID == "" {
		return Application{}, fmt.Errorf("%w: account id is required", authz.ErrUnauthenticated)
	}
	app := Application{
		ID:          ids.New(),
		AccountID:   acct.ID,
		DocumentRef: documentRef,
		Status:      account.VerificationPending,
		SubmittedAt: s.now(),
	}
	created, err := s.store.Submit(ctx, app)
	if err != nil {
		return Application{}, err
	}
	if s.cfg.AutoApprove {
		return s.store.Decide(ctx, created.ID, account.VerificationApproved, DecidedBySystem, s.now())
	}
	return created, nil
}

// Decide applies an admin outcome to a pending application. Deciding an
// already-decided application is an error, never a silent overwrite.
func (s *Service) Decide(ctx context.Context, applicationID string, outcome account.VerificationStatus, admin *account.Account) (Application, error) {
	var capability authz.Capability
	switch outcome {
	case account.VerificationApproved:
		capability = authz.CapAdminApprove
	case account.VerificationRejected:
		capability = authz.CapAdminReject
	default:
		return Application{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	if err := authz.Decide(admin, capability); err != nil {
		return Application{}, err
	}
	return s.store.Decide(ctx, applicationID, outcome, admin.ID, s.now())
}

// List returns applications visible to an admin.
func (s *Service) List(ctx context.Context, status account.VerificationStatus, admin *account.Account) ([]Application, error) {
	if err := authz.Decide(admin, authz.CapAdminListApps); err != nil {
		return nil, err
	}
	return s.store.List(ctx, status)
}

// Get fetches a single application.
func (s *Service) Get(ctx context.Context, id string) (Application, error) {
	return s.store.GetApplication(ctx, id)
}

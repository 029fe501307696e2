package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"medrecord.org/internal/account"
)

// Store backs every domain store interface with a shared connection pool so
// cross-table operations can run in one transaction.
type Store struct {
	db *sql.DB
}

var _ account.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing pool. Used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func joinRoles(roles []account.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

func splitRoles(raw string) []account.Role {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]account.Role, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, account.Role(p))
	}
	return roles
}

const accountColumns = `id, national_id, name, phone, email, date_of_birth,
	password_hash, roles, active_role, verification_status,
	specialization, city, governorate, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		acct  account.Account
		roles string
	)
	err := row.Scan(
		&acct.ID, &acct.NationalID, &acct.Name, &acct.Phone, &acct.Email,
		&acct.DateOfBirth, &acct.PasswordHash, &roles, &acct.ActiveRole,
		&acct.VerificationStatus, &acct.Specialization, &acct.City,
		&acct.Governorate, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, err
	}
	acct.Roles = splitRoles(roles)
	return acct, nil
}

func (s *Store) Create(ctx context.Context, acct account.Account) (account.Account, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		acct.ID, acct.NationalID, acct.Name, acct.Phone, acct.Email,
		acct.DateOfBirth, acct.PasswordHash, joinRoles(acct.Roles),
		string(acct.ActiveRole), string(acct.VerificationStatus),
		acct.Specialization, acct.City, acct.Governorate,
		acct.CreatedAt, acct.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return account.Account{}, account.ErrConflict
	}
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) Get(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *Store) GetByLogin(ctx context.Context, login string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where national_id=$1 or phone=$1`, login)
	return scanAccount(row)
}

func (s *Store) UpdateActiveRole(ctx context.Context, id string, role account.Role) (account.Account, error) {
	// The roles membership check runs inside the update so a concurrent
	// role-set change cannot slip an invalid active role through.
	res, err := s.db.ExecContext(ctx, `
		update accounts
		set active_role=$2, updated_at=now()
		where id=$1 and $2 = any(string_to_array(roles, ','))
	`, id, string(role))
	if err != nil {
		return account.Account{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, err
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return account.Account{}, err
		}
		return account.Account{}, account.ErrInvalidRole
	}
	return s.Get(ctx, id)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd account.ProfileUpdate) (account.Account, error) {
	res, err := s.db.ExecContext(ctx, `
		update accounts
		set name        = coalesce($2, name),
		    email       = coalesce($3, email),
		    city        = coalesce($4, city),
		    governorate = coalesce($5, governorate),
		    updated_at  = now()
		where id=$1
	`, id, upd.Name, upd.Email, upd.City, upd.Governorate)
	if err != nil {
		return account.Account{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, err
	}
	if n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return s.Get(ctx, id)
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medrecord.org/internal/account"
	"medrecord.org/internal/verify"
)

var _ verify.Store = (*Store)(nil)

const applicationColumns = `id, account_id, document_ref, status,
	submitted_at, decided_at, decided_by`

func scanApplication(row rowScanner) (verify.Application, error) {
	var (
		app       verify.Application
		decidedAt sql.NullTime
		decidedBy sql.NullString
	)
	err := row.Scan(&app.ID, &app.AccountID, &app.DocumentRef, &app.Status,
		&app.SubmittedAt, &decidedAt, &decidedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return verify.Application{}, verify.ErrNotFound
	}
	if err != nil {
		return verify.Application{}, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}
	app.DecidedBy = decidedBy.String
	return app, nil
}

// Submit inserts the application and mirrors the pending state onto the
// account in one transaction. A partial unique index on pending applications
// turns a duplicate submit into ErrAlreadyPending.
func (s *Store) Submit(ctx context.Context, app verify.Application) (verify.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return verify.Application{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into applications (`+applicationColumns+`)
		values ($1,$2,$3,$4,$5,null,null)
	`, app.ID, app.AccountID, app.DocumentRef, string(app.Status), app.SubmittedAt)
	if isUniqueViolation(err) {
		return verify.Application{}, verify.ErrAlreadyPending
	}
	if err != nil {
		return verify.Application{}, err
	}

	res, err := tx.ExecContext(ctx, `
		update accounts
		set roles = case
		        when 'doctor' = any(string_to_array(roles, ',')) then roles
		        else roles || ',doctor'
		    end,
		    verification_status = $2,
		    updated_at = now()
		where id=$1
	`, app.AccountID, string(account.VerificationPending))
	if err != nil {
		return verify.Application{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return verify.Application{}, err
	}
	if n == 0 {
		return verify.Application{}, account.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return verify.Application{}, err
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (verify.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+applicationColumns+` from applications where id=$1`, id)
	return scanApplication(row)
}

func (s *Store) List(ctx context.Context, status account.VerificationStatus) ([]verify.Application, error) {
	query := `select ` + applicationColumns + ` from applications`
	args := []any{}
	if status != "" {
		query += ` where status=$1`
		args = append(args, string(status))
	}
	query += ` order by submitted_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []verify.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// Decide flips the application from pending to outcome and mirrors the
// outcome onto the account atomically. The where clause on status makes the
// flip a compare-and-set: of two concurrent decisions exactly one updates a
// row, the other re-reads and reports ErrAlreadyDecided.
func (s *Store) Decide(ctx context.Context, id string, outcome account.VerificationStatus, decidedBy string, decidedAt time.Time) (verify.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return verify.Application{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update applications
		set status=$2, decided_by=$3, decided_at=$4
		where id=$1 and status=$5
	`, id, string(outcome), decidedBy, decidedAt, string(account.VerificationPending))
	if err != nil {
		return verify.Application{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return verify.Application{}, err
	}
	if n == 0 {
		app, err := s.GetApplication(ctx, id)
		if err != nil {
			return verify.Application{}, err
		}
		return app, verify.ErrAlreadyDecided
	}

	app, err := scanApplication(tx.QueryRowContext(ctx,
		`select `+applicationColumns+` from applications where id=$1`, id))
	if err != nil {
		return verify.Application{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		update accounts set verification_status=$2, updated_at=now() where id=$1
	`, app.AccountID, string(outcome)); err != nil {
		return verify.Application{}, err
	}

	if err := tx.Commit(); err != nil {
		return verify.Application{}, err
	}
	return app, nil
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medrecord.org/internal/account"
)

var _ account.FamilyStore = (*Store)(nil)

const familyColumns = `id, account_id, full_name, age, gender, relationship,
	blood_type, allergies, chronic_conditions, created_at, updated_at`

func scanFamilyMember(row rowScanner) (account.FamilyMember, error) {
	var (
		m          account.FamilyMember
		allergies  string
		conditions string
	)
	err := row.Scan(&m.ID, &m.AccountID, &m.FullName, &m.Age, &m.Gender,
		&m.Relationship, &m.BloodType, &allergies, &conditions,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.FamilyMember{}, account.ErrNotFound
	}
	if err != nil {
		return account.FamilyMember{}, err
	}
	m.Allergies = splitList(allergies)
	m.ChronicConditions = splitList(conditions)
	return m, nil
}

func (s *Store) AddFamilyMember(ctx context.Context, m account.FamilyMember) (account.FamilyMember, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into family_members (`+familyColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, m.ID, m.AccountID, m.FullName, m.Age, m.Gender, m.Relationship,
		m.BloodType, joinList(m.Allergies), joinList(m.ChronicConditions),
		m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return account.FamilyMember{}, err
	}
	return m, nil
}

func (s *Store) GetFamilyMember(ctx context.Context, accountID, id string) (account.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+familyColumns+` from family_members where id=$1 and account_id=$2
	`, id, accountID)
	return scanFamilyMember(row)
}

func (s *Store) ListFamilyMembers(ctx context.Context, accountID string) ([]account.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+familyColumns+` from family_members where account_id=$1 order by created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []account.FamilyMember
	for rows.Next() {
		m, err := scanFamilyMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *Store) UpdateFamilyMember(ctx context.Context, m account.FamilyMember) (account.FamilyMember, error) {
	res, err := s.db.ExecContext(ctx, `
		update family_members
		set full_name=$3, age=$4, gender=$5, relationship=$6, blood_type=$7,
			allergies=$8, chronic_conditions=$9, updated_at=$10
		where id=$1 and account_id=$2
	`, m.ID, m.AccountID, m.FullName, m.Age, m.Gender, m.Relationship,
		m.BloodType, joinList(m.Allergies), joinList(m.ChronicConditions), m.UpdatedAt)
	if err != nil {
		return account.FamilyMember{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.FamilyMember{}, err
	}
	if n == 0 {
		return account.FamilyMember{}, account.ErrNotFound
	}
	return m, nil
}

func (s *Store) RemoveFamilyMember(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from family_members where id=$1 and account_id=$2
	`, id, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

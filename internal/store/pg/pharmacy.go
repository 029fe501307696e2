package pg

import (
	"context"

	"medrecord.org/internal/pharmacy"
)

var _ pharmacy.Store = (*Store)(nil)

func (s *Store) CreatePharmacy(ctx context.Context, p pharmacy.Pharmacy) (pharmacy.Pharmacy, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into pharmacies (id, name, address, city, governorate, phone, latitude, longitude)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, p.ID, p.Name, p.Address, p.City, p.Governorate, p.Phone, p.Latitude, p.Longitude)
	if err != nil {
		return pharmacy.Pharmacy{}, err
	}
	return p, nil
}

func (s *Store) ListPharmacies(ctx context.Context, city string) ([]pharmacy.Pharmacy, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, address, city, governorate, phone, latitude, longitude
		from pharmacies
		where $1 = '' or city = $1
		order by name
	`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []pharmacy.Pharmacy
	for rows.Next() {
		var p pharmacy.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.Governorate,
			&p.Phone, &p.Latitude, &p.Longitude); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Store) CreateSuggestion(ctx context.Context, sg pharmacy.Suggestion) (pharmacy.Suggestion, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into pharmacy_suggestions
			(id, doctor_id, name, address, city, phone, latitude, longitude, notes, status, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sg.ID, sg.DoctorID, sg.Name, sg.Address, sg.City, sg.Phone,
		sg.Latitude, sg.Longitude, sg.Notes, string(sg.Status), sg.CreatedAt)
	if err != nil {
		return pharmacy.Suggestion{}, err
	}
	return sg, nil
}

func (s *Store) ListSuggestionsByDoctor(ctx context.Context, doctorID string) ([]pharmacy.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, doctor_id, name, address, city, phone, latitude, longitude, notes, status, created_at
		from pharmacy_suggestions
		where doctor_id=$1
		order by created_at
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []pharmacy.Suggestion
	for rows.Next() {
		var sg pharmacy.Suggestion
		if err := rows.Scan(&sg.ID, &sg.DoctorID, &sg.Name, &sg.Address, &sg.City,
			&sg.Phone, &sg.Latitude, &sg.Longitude, &sg.Notes, &sg.Status, &sg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, sg)
	}
	return list, rows.Err()
}

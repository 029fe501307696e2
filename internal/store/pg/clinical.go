package pg

import (
	"context"
	"database/sql"
	"errors"

	"medrecord.org/internal/clinical"
)

var _ clinical.Store = (*Store)(nil)

func (s *Store) CreatePrescription(ctx context.Context, p clinical.Prescription) (clinical.Prescription, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into prescriptions (id, doctor_id, patient_id, medication, dosage, notes, issued_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.DoctorID, p.PatientID, p.Medication, p.Dosage, p.Notes, p.IssuedAt)
	if err != nil {
		return clinical.Prescription{}, err
	}
	return p, nil
}

func (s *Store) ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, doctor_id, patient_id, medication, dosage, notes, issued_at
		from prescriptions where patient_id=$1 order by issued_at
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []clinical.Prescription
	for rows.Next() {
		var p clinical.Prescription
		if err := rows.Scan(&p.ID, &p.DoctorID, &p.PatientID, &p.Medication,
			&p.Dosage, &p.Notes, &p.IssuedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Store) CreateAppointment(ctx context.Context, a clinical.Appointment) (clinical.Appointment, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into appointments (id, doctor_id, patient_id, scheduled_at, status, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.DoctorID, a.PatientID, a.ScheduledAt, string(a.Status), a.CreatedAt)
	if err != nil {
		return clinical.Appointment{}, err
	}
	return a, nil
}

func scanAppointment(row rowScanner) (clinical.Appointment, error) {
	var a clinical.Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.ScheduledAt, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return clinical.Appointment{}, clinical.ErrNotFound
	}
	if err != nil {
		return clinical.Appointment{}, err
	}
	return a, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (clinical.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, doctor_id, patient_id, scheduled_at, status, created_at
		from appointments where id=$1
	`, id)
	return scanAppointment(row)
}

func (s *Store) ListAppointmentsFor(ctx context.Context, accountID string) ([]clinical.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, doctor_id, patient_id, scheduled_at, status, created_at
		from appointments
		where doctor_id=$1 or patient_id=$1
		order by scheduled_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []clinical.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (s *Store) CASAppointmentStatus(ctx context.Context, id string, expected, next clinical.AppointmentStatus) (clinical.Appointment, error) {
	res, err := s.db.ExecContext(ctx, `
		update appointments set status=$3 where id=$1 and status=$2
	`, id, string(expected), string(next))
	if err != nil {
		return clinical.Appointment{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return clinical.Appointment{}, err
	}
	if n == 0 {
		if _, err := s.GetAppointment(ctx, id); err != nil {
			return clinical.Appointment{}, err
		}
		return clinical.Appointment{}, clinical.ErrStatusChanged
	}
	return s.GetAppointment(ctx, id)
}

func (s *Store) UpsertRating(ctx context.Context, rt clinical.Rating) (clinical.Rating, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into doctor_ratings (id, doctor_id, patient_id, stars, review, created_at)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (doctor_id, patient_id)
		do update set stars=excluded.stars, review=excluded.review, created_at=excluded.created_at
	`, rt.ID, rt.DoctorID, rt.PatientID, rt.Stars, rt.Review, rt.CreatedAt)
	if err != nil {
		return clinical.Rating{}, err
	}
	return rt, nil
}

func (s *Store) SummarizeRatings(ctx context.Context, doctorID string) (clinical.RatingSummary, error) {
	sum := clinical.RatingSummary{DoctorID: doctorID}
	err := s.db.QueryRowContext(ctx, `
		select coalesce(avg(stars), 0), count(*) from doctor_ratings where doctor_id=$1
	`, doctorID).Scan(&sum.Average, &sum.Count)
	if err != nil {
		return clinical.RatingSummary{}, err
	}
	return sum, nil
}

package clinical

import (
	"context"
	"fmt"
	"strings"

	"medrecord.org/internal/account"
	"medrecord.org/internal/authz"
	"medrecord.org/internal/ids"
)

// RateDoctor records the caller's rating of a doctor, replacing any rating
// the same patient left before.
func (s *Service) RateDoctor(ctx context.Context, patient *account.Account, doctorID string, stars int, review string) (Rating, error) {
	if err := authz.Decide(patient, authz.CapPatientRateDoctor); err != nil {
		return Rating{}, err
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return Rating{}, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	if doctorID == patient.ID {
		return Rating{}, fmt.Errorf("%w: cannot rate yourself", ErrInvalidInput)
	}
	if stars < 1 || stars > 5 {
		return Rating{}, fmt.Errorf("%w: stars must be between 1 and 5", ErrInvalidInput)
	}
	return s.store.UpsertRating(ctx, Rating{
		ID:        ids.New(),
		DoctorID:  doctorID,
		PatientID: patient.ID,
		Stars:     stars,
		Review:    strings.TrimSpace(review),
		CreatedAt: s.now(),
	})
}

// DoctorRating returns a doctor's average rating and vote count. Any
// authenticated account may read it.
func (s *Service) DoctorRating(ctx context.Context, actor *account.Account, doctorID string) (RatingSummary, error) {
	if actor == nil {
		return RatingSummary{}, authz.ErrUnauthenticated
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return RatingSummary{}, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	return s.store.SummarizeRatings(ctx, doctorID)
}

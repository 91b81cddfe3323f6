package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(base BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{base}
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailability, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
		FROM weekly_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week, id
	`
	days := []*model.WeeklyAvailability{}
	if err := r.db.SelectContext(ctx, &days, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list weekly availability: %w", err)
	}
	return days, nil
}

func (r *availabilityRepository) ReplaceForDoctor(ctx context.Context, doctorID int64, days []*model.WeeklyAvailability) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM weekly_availability WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("failed to clear weekly availability: %w", err)
		}

		query := `
			INSERT INTO weekly_availability (doctor_id, day_of_week, start_time, end_time, is_available)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`
		for _, day := range days {
			day.DoctorID = doctorID
			err := tx.QueryRowxContext(ctx, query,
				doctorID,
				int(day.DayOfWeek),
				day.StartTime,
				day.EndTime,
				day.IsAvailable,
			).Scan(&day.ID, &day.CreatedAt, &day.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert weekly availability: %w", translateConflict(err, repository.ErrDuplicate))
			}
		}
		return nil
	})
}

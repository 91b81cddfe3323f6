package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const appointmentColumns = `id, doctor_id, patient_id, start_time, end_time, status, notes, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListOverlapping(ctx context.Context, doctorID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status <> $2
		AND start_time < $4
		AND end_time > $3
		ORDER BY start_time
	`
	appointments := []*model.Appointment{}
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, model.AppointmentStatusCancelled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Book serializes bookings per doctor by locking the doctor row, re-checks
// the overlap, then inserts the appointment and its outbox event. The
// appointments_no_overlap exclusion constraint backs the check at commit.
func (r *appointmentRepository) Book(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var locked int64
		err := tx.GetContext(ctx, &locked,
			`SELECT id FROM doctors WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, apt.DoctorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock doctor: %w", err)
		}

		var conflict bool
		err = tx.GetContext(ctx, &conflict, `
			SELECT EXISTS(
				SELECT 1 FROM appointments
				WHERE doctor_id = $1
				AND status <> $2
				AND start_time < $4
				AND end_time > $3
			)`, apt.DoctorID, model.AppointmentStatusCancelled, apt.StartTime, apt.EndTime)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if conflict {
			return repository.ErrSlotConflict
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO appointments (doctor_id, patient_id, start_time, end_time, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`,
			apt.DoctorID,
			apt.PatientID,
			apt.StartTime,
			apt.EndTime,
			apt.Status,
			apt.Notes,
		).Scan(&apt.ID, &apt.CreatedAt, &apt.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", translateConflict(err, repository.ErrSlotConflict))
		}

		if event == nil {
			return nil
		}
		return insertBookedEvent(ctx, tx, apt, event)
	})
}

func insertBookedEvent(ctx context.Context, tx *sqlx.Tx, apt *model.Appointment, event *model.OutboxEvent) error {
	payload, err := json.Marshal(model.AppointmentBookedPayload{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		StartTime:     apt.StartTime,
		EndTime:       apt.EndTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	event.AggregateID = apt.ID
	event.Payload = payload

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, event.ID, event.EventType, event.AggregateID, []byte(event.Payload), event.Status,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// All repository interfaces in one file
type (
	DoctorRepository interface {
		// Get returns ErrNotFound for unknown or soft-deleted doctors.
		Get(ctx context.Context, id int64) (*model.Doctor, error)
		Exists(ctx context.Context, id int64) (bool, error)
	}

	PatientRepository interface {
		// Get returns ErrNotFound for unknown or soft-deleted patients.
		Get(ctx context.Context, id int64) (*model.Patient, error)
		Exists(ctx context.Context, id int64) (bool, error)
	}

	AvailabilityRepository interface {
		// ListByDoctor returns the doctor's weekly rows ordered by day_of_week, id.
		ListByDoctor(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailability, error)
		// ReplaceForDoctor swaps the doctor's whole weekly schedule atomically.
		// Duplicate weekdays fail with ErrDuplicate.
		ReplaceForDoctor(ctx context.Context, doctorID int64, days []*model.WeeklyAvailability) error
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		// ListOverlapping returns the doctor's non-cancelled appointments
		// intersecting [from, to), ordered by start_time.
		ListOverlapping(ctx context.Context, doctorID int64, from, to time.Time) ([]*model.Appointment, error)
		// Book inserts apt unless it overlaps a non-cancelled appointment of
		// the same doctor, in which case it returns ErrSlotConflict. The
		// overlap check, the insert and the outbox event commit together.
		// Unknown or deleted doctors fail with ErrNotFound.
		Book(ctx context.Context, apt *model.Appointment, event *model.OutboxEvent) error
	}

	OutboxRepository interface {
		// ClaimPending marks up to limit pending events as processing and returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed records errMsg. With retry the event goes back to pending.
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retry bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger reports storage readiness.
	Pinger interface {
		PingContext(ctx context.Context) error
	}
)

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

var monday = time.Date(2030, time.January, 7, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newAppointment(doctorID int64, start, end time.Time) *model.Appointment {
	return &model.Appointment{
		DoctorID:  doctorID,
		PatientID: 99,
		StartTime: start,
		EndTime:   end,
		Status:    model.AppointmentStatusPending,
	}
}

func TestBookRejectsOverlaps(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		conflict   bool
	}{
		{"exact", at(10, 0), at(10, 30), true},
		{"partial tail", at(10, 15), at(10, 45), true},
		{"partial head", at(9, 45), at(10, 15), true},
		{"contains existing", at(9, 30), at(11, 0), true},
		{"inside existing", at(10, 10), at(10, 20), true},
		{"touching before", at(9, 30), at(10, 0), false},
		{"touching after", at(10, 30), at(11, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore()
			doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Grey"})
			repo := NewAppointmentRepository(store)
			require.NoError(t, repo.Book(ctx, newAppointment(doctor.ID, at(10, 0), at(10, 30)), nil))

			err := repo.Book(ctx, newAppointment(doctor.ID, tc.start, tc.end), nil)
			if tc.conflict {
				assert.ErrorIs(t, err, repository.ErrSlotConflict)
				assert.Len(t, store.Appointments(), 1)
			} else {
				assert.NoError(t, err)
				assert.Len(t, store.Appointments(), 2)
			}
		})
	}
}

func TestBookIgnoresCancelledAndOtherDoctors(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	d1 := store.AddDoctor(&model.Doctor{Name: "One"})
	d2 := store.AddDoctor(&model.Doctor{Name: "Two"})
	repo := NewAppointmentRepository(store)

	cancelled := newAppointment(d1.ID, at(10, 0), at(10, 30))
	cancelled.Status = model.AppointmentStatusCancelled
	require.NoError(t, repo.Book(ctx, cancelled, nil))

	assert.NoError(t, repo.Book(ctx, newAppointment(d1.ID, at(10, 0), at(10, 30)), nil))
	assert.NoError(t, repo.Book(ctx, newAppointment(d2.ID, at(10, 0), at(10, 30)), nil))
}

func TestBookUnknownDoctor(t *testing.T) {
	store := NewStore()
	deleted := time.Now()
	gone := store.AddDoctor(&model.Doctor{Base: model.Base{DeletedAt: &deleted}})
	repo := NewAppointmentRepository(store)

	assert.ErrorIs(t, repo.Book(context.Background(), newAppointment(404, at(9, 0), at(9, 30)), nil), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Book(context.Background(), newAppointment(gone.ID, at(9, 0), at(9, 30)), nil), repository.ErrNotFound)
}

func TestConcurrentBookingsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Race"})
	repo := NewAppointmentRepository(store)

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			// overlapping 30 minute requests staggered by 5 minutes
			start := at(9, 0).Add(time.Duration(offset%12) * 5 * time.Minute)
			results <- repo.Book(ctx, newAppointment(doctor.ID, start, start.Add(30*time.Minute)), nil)
		}(i)
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, repository.ErrSlotConflict)
		}
	}

	booked := store.Appointments()
	require.NotEmpty(t, booked)
	for i := range booked {
		for j := i + 1; j < len(booked); j++ {
			assert.False(t, model.Overlaps(booked[i].StartTime, booked[i].EndTime, booked[j].StartTime, booked[j].EndTime),
				"appointments %d and %d overlap", booked[i].ID, booked[j].ID)
		}
	}
}

func TestBookWritesOutboxEvent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Event"})
	repo := NewAppointmentRepository(store)
	outbox := NewOutboxRepository(store)

	apt := newAppointment(doctor.ID, at(11, 0), at(11, 30))
	require.NoError(t, repo.Book(ctx, apt, model.NewAppointmentBookedEvent()))

	claimed, err := outbox.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, model.EventAppointmentBooked, claimed[0].EventType)
	assert.Equal(t, apt.ID, claimed[0].AggregateID)
	assert.Contains(t, string(claimed[0].Payload), `"appointment_id":`)

	again, err := outbox.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, outbox.MarkFailed(ctx, claimed[0].ID, "broker down", true))
	retried, err := outbox.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, 1, retried[0].RetryCount)

	require.NoError(t, outbox.MarkProcessed(ctx, retried[0].ID))
	deleted, err := outbox.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestReplaceForDoctorRejectsDuplicateDays(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewAvailabilityRepository(store)

	err := repo.ReplaceForDoctor(ctx, 1, []*model.WeeklyAvailability{
		{DayOfWeek: time.Monday, StartTime: model.NewClock(9, 0), EndTime: model.NewClock(17, 0), IsAvailable: true},
		{DayOfWeek: time.Monday, StartTime: model.NewClock(10, 0), EndTime: model.NewClock(12, 0), IsAvailable: true},
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	rows, err := repo.ListByDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

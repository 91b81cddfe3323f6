package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// 2030-01-07 is a Monday.
var monday = time.Date(2030, time.January, 7, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

type fixture struct {
	store    *memory.Store
	svc      *Service
	doctorID int64
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	store := memory.NewStore()
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Who"})
	svc := NewService(
		memory.NewDoctorRepository(store),
		memory.NewAvailabilityRepository(store),
		Config{Location: loc},
		nil,
	)
	return &fixture{store: store, svc: svc, doctorID: doctor.ID}
}

func (f *fixture) replace(t *testing.T, days ...model.WeeklyAvailabilityEntry) {
	t.Helper()
	_, err := f.svc.ReplaceWeeklySchedule(context.Background(), f.doctorID, model.ReplaceScheduleRequest{Days: days})
	require.NoError(t, err)
}

func TestWindowAnchorsToDate(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.replace(t, model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"})

	window, err := f.svc.Window(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.Equal(t, time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2030, 1, 7, 17, 0, 0, 0, time.UTC), window.End)
}

func TestWindowUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("clinic", 2*60*60)
	f := newFixture(t, loc)
	f.replace(t, model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(1), StartTime: "08:30", EndTime: "12:00"})

	date := time.Date(2030, 1, 7, 0, 0, 0, 0, loc)
	window, err := f.svc.Window(context.Background(), f.doctorID, date)
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.True(t, window.Start.Equal(time.Date(2030, 1, 7, 6, 30, 0, 0, time.UTC)))
}

func TestWindowEmptyDays(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.replace(t,
		model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00", IsAvailable: boolPtr(false)},
		model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(2), StartTime: "09:00", EndTime: "17:00"},
	)

	unavailable, err := f.svc.Window(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	assert.Nil(t, unavailable)

	// Sunday has no row at all
	missing, err := f.svc.Window(context.Background(), f.doctorID, monday.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWindowUnknownDoctor(t *testing.T) {
	f := newFixture(t, time.UTC)

	_, err := f.svc.Window(context.Background(), 12345, monday)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestWindowPicksLowestIDOnDuplicates(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.AppendAvailability(&model.WeeklyAvailability{
		DoctorID: f.doctorID, DayOfWeek: time.Monday,
		StartTime: model.NewClock(8, 0), EndTime: model.NewClock(12, 0), IsAvailable: true,
	})
	f.store.AppendAvailability(&model.WeeklyAvailability{
		DoctorID: f.doctorID, DayOfWeek: time.Monday,
		StartTime: model.NewClock(13, 0), EndTime: model.NewClock(18, 0), IsAvailable: true,
	})

	window, err := f.svc.Window(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.Equal(t, 8, window.Start.Hour())
}

func TestReplaceWeeklyScheduleValidation(t *testing.T) {
	f := newFixture(t, time.UTC)

	_, err := f.svc.ReplaceWeeklySchedule(context.Background(), f.doctorID, model.ReplaceScheduleRequest{
		Days: []model.WeeklyAvailabilityEntry{
			{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"},
			{DayOfWeek: intPtr(1), StartTime: "10:00", EndTime: "11:00"},
			{DayOfWeek: intPtr(2), StartTime: "17:00", EndTime: "09:00"},
		},
	})
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, apperrors.FieldError{Field: "days[1].day_of_week", Message: "duplicate day_of_week"})
	assert.Contains(t, appErr.Fields, apperrors.FieldError{Field: "days[2].end_time", Message: "must be after start_time"})

	_, err = f.svc.ReplaceWeeklySchedule(context.Background(), f.doctorID, model.ReplaceScheduleRequest{
		Days: []model.WeeklyAvailabilityEntry{{DayOfWeek: intPtr(7), StartTime: "09:00", EndTime: "17:00"}},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))
}

func TestReplaceInvalidatesCache(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.replace(t, model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "17:00"})

	first, err := f.svc.Window(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	require.NotNil(t, first)

	f.replace(t, model.WeeklyAvailabilityEntry{DayOfWeek: intPtr(1), StartTime: "10:00", EndTime: "12:00"})

	second, err := f.svc.Window(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 10, second.Start.Hour())
}

func TestCacheIsPerInstance(t *testing.T) {
	store := memory.NewStore()
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Who"})
	replica := func(cfg Config) *Service {
		return NewService(memory.NewDoctorRepository(store), memory.NewAvailabilityRepository(store), cfg, nil)
	}
	writer := replica(Config{})
	cached := replica(Config{CacheTTL: time.Hour})
	uncached := replica(Config{DisableCache: true})

	ctx := context.Background()
	week := func(start string) {
		_, err := writer.ReplaceWeeklySchedule(ctx, doctor.ID, model.ReplaceScheduleRequest{
			Days: []model.WeeklyAvailabilityEntry{{DayOfWeek: intPtr(1), StartTime: start, EndTime: "17:00"}},
		})
		require.NoError(t, err)
	}

	week("09:00")
	for _, svc := range []*Service{cached, uncached} {
		w, err := svc.Window(ctx, doctor.ID, monday)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, 9, w.Start.Hour())
	}

	week("11:00")

	// the edit went through another instance, so only the uncached one sees it
	w, err := cached.Window(ctx, doctor.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, 9, w.Start.Hour())

	w, err = uncached.Window(ctx, doctor.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, 11, w.Start.Hour())
}

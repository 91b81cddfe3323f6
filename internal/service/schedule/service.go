package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

const defaultCacheTTL = time.Minute

type Config struct {
	// Location anchors weekly time-of-day values to calendar dates.
	Location *time.Location
	// CacheTTL bounds how long a doctor's weekly schedule is served from memory.
	// The cache is per process: a replace only clears it on this instance.
	CacheTTL time.Duration
	// DisableCache reads the weekly schedule from storage on every lookup.
	DisableCache bool
}

// Service resolves doctors' working windows from their weekly availability.
type Service struct {
	doctors      repository.DoctorRepository
	availability repository.AvailabilityRepository
	cache        *cache.Cache
	cacheEnabled bool
	loc          *time.Location
	validator    validator.Validator
	logger       *logger.Logger
}

func NewService(
	doctors repository.DoctorRepository,
	availability repository.AvailabilityRepository,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		doctors:      doctors,
		availability: availability,
		cache:        cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		cacheEnabled: !cfg.DisableCache,
		loc:          cfg.Location,
		validator:    validator.New(),
		logger:       log,
	}
}

// Location is the zone calendar dates are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Window returns the doctor's working interval on date, or nil when the
// doctor has no available schedule for that weekday. Unknown doctors fail
// with a not found error.
func (s *Service) Window(ctx context.Context, doctorID int64, date time.Time) (*model.Window, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	rows, err := s.weekly(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	date = date.In(s.loc)
	day := firstForDay(rows, date.Weekday())
	if day == nil || !day.IsAvailable {
		return nil, nil
	}

	window := &model.Window{
		Start: day.StartTime.On(date, s.loc),
		End:   day.EndTime.On(date, s.loc),
	}
	if !window.Start.Before(window.End) {
		s.logger.Warn("Ignoring inverted weekly availability",
			"doctor_id", doctorID, "day_of_week", int(day.DayOfWeek))
		return nil, nil
	}
	return window, nil
}

// firstForDay picks the lowest-id row for weekday. Rows arrive ordered by
// (day_of_week, id), so the first match wins.
func firstForDay(rows []*model.WeeklyAvailability, weekday time.Weekday) *model.WeeklyAvailability {
	for _, row := range rows {
		if row.DayOfWeek == weekday {
			return row
		}
	}
	return nil
}

// WeeklySchedule lists the doctor's weekly availability rows.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailability, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.weekly(ctx, doctorID)
}

// ReplaceWeeklySchedule swaps the doctor's weekly schedule. A weekday may
// appear at most once.
func (s *Service) ReplaceWeeklySchedule(ctx context.Context, doctorID int64, req model.ReplaceScheduleRequest) ([]*model.WeeklyAvailability, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}

	rows, fields := parseEntries(req.Days)
	if len(fields) > 0 {
		return nil, apperrors.NewValidation("invalid weekly schedule", fields...)
	}

	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	if err := s.availability.ReplaceForDoctor(ctx, doctorID, rows); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewValidation("invalid weekly schedule",
				apperrors.FieldError{Field: "days", Message: "each day_of_week may appear once"})
		}
		s.logger.Error(err, "Failed to replace weekly schedule", "doctor_id", doctorID)
		return nil, apperrors.NewInternal(err)
	}

	s.cache.Delete(cacheKey(doctorID))
	s.logger.Info("Weekly schedule replaced", "doctor_id", doctorID, "days", len(rows))
	return rows, nil
}

func parseEntries(entries []model.WeeklyAvailabilityEntry) ([]*model.WeeklyAvailability, []apperrors.FieldError) {
	var fields []apperrors.FieldError
	rows := make([]*model.WeeklyAvailability, 0, len(entries))
	seen := make(map[int]bool, len(entries))

	for i, e := range entries {
		prefix := fmt.Sprintf("days[%d]", i)

		start, errStart := model.ParseClock(e.StartTime)
		end, errEnd := model.ParseClock(e.EndTime)
		if errStart != nil || errEnd != nil {
			fields = append(fields, apperrors.FieldError{Field: prefix, Message: "times must use HH:MM"})
			continue
		}
		if !start.Before(end) {
			fields = append(fields, apperrors.FieldError{Field: prefix + ".end_time", Message: "must be after start_time"})
		}

		day := *e.DayOfWeek
		if seen[day] {
			fields = append(fields, apperrors.FieldError{Field: prefix + ".day_of_week", Message: "duplicate day_of_week"})
		}
		seen[day] = true

		available := true
		if e.IsAvailable != nil {
			available = *e.IsAvailable
		}
		rows = append(rows, &model.WeeklyAvailability{
			DayOfWeek:   time.Weekday(day),
			StartTime:   start,
			EndTime:     end,
			IsAvailable: available,
		})
	}
	return rows, fields
}

func (s *Service) ensureDoctor(ctx context.Context, doctorID int64) error {
	exists, err := s.doctors.Exists(ctx, doctorID)
	if err != nil {
		s.logger.Error(err, "Failed to look up doctor", "doctor_id", doctorID)
		return apperrors.NewInternal(err)
	}
	if !exists {
		return apperrors.NewNotFound("doctor", repository.ErrNotFound)
	}
	return nil
}

func (s *Service) weekly(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailability, error) {
	key := cacheKey(doctorID)
	if s.cacheEnabled {
		if cached, ok := s.cache.Get(key); ok {
			return cached.([]*model.WeeklyAvailability), nil
		}
	}

	rows, err := s.availability.ListByDoctor(ctx, doctorID)
	if err != nil {
		s.logger.Error(err, "Failed to load weekly availability", "doctor_id", doctorID)
		return nil, apperrors.NewInternal(err)
	}
	if s.cacheEnabled {
		s.cache.SetDefault(key, rows)
	}
	return rows, nil
}

func cacheKey(doctorID int64) string {
	return "weekly:" + strconv.FormatInt(doctorID, 10)
}

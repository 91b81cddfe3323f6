package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

// Slot duration bounds in minutes
const (
	MinSlotDuration     = 15
	MaxSlotDuration     = 240
	DefaultSlotDuration = 30
)

const dateLayout = "2006-01-02"

// WindowResolver returns a doctor's working window on a date, nil when the
// doctor does not work that day.
type WindowResolver interface {
	Window(ctx context.Context, doctorID int64, date time.Time) (*model.Window, error)
	Location() *time.Location
}

// ReminderScheduler queues a reminder for a committed appointment.
type ReminderScheduler interface {
	Schedule(ctx context.Context, apt *model.Appointment) error
}

type Option func(*Service)

func WithReminders(r ReminderScheduler) Option {
	return func(s *Service) { s.reminders = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, which decides whether a start time is in the future.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service lists free slots and books appointments.
type Service struct {
	calendar     WindowResolver
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	reminders    ReminderScheduler
	validator    validator.Validator
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	calendar WindowResolver,
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	opts ...Option,
) *Service {
	s := &Service{
		calendar:     calendar,
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		validator:    validator.New(),
		logger:       logger.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAvailableSlots returns the doctor's free slots of q.Duration minutes on
// q.Date in chronological order. A day without working hours yields an empty
// slice. The result is advisory: a booking may still lose the race.
func (s *Service) ListAvailableSlots(ctx context.Context, q model.AvailabilityQuery) ([]model.Slot, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.SlotQueryLatency)
		defer timer.ObserveDuration()
	}

	if err := s.validator.Validate(&q); err != nil {
		s.countQuery("invalid")
		return nil, err
	}

	loc := s.calendar.Location()
	date, err := time.ParseInLocation(dateLayout, q.Date, loc)
	if err != nil {
		s.countQuery("invalid")
		return nil, apperrors.NewValidation("validation failed",
			apperrors.FieldError{Field: "date", Message: "must be a date in YYYY-MM-DD format"})
	}

	window, err := s.calendar.Window(ctx, q.DoctorID, date)
	if err != nil {
		s.countQuery("error")
		return nil, err
	}
	if window == nil {
		s.countQuery("day_off")
		return []model.Slot{}, nil
	}

	dayEnd := date.AddDate(0, 0, 1)
	booked, err := s.appointments.ListOverlapping(ctx, q.DoctorID, date, dayEnd)
	if err != nil {
		s.countQuery("error")
		s.logger.Error(err, "Failed to load appointments", "doctor_id", q.DoctorID, "date", q.Date)
		return nil, apperrors.NewInternal(err)
	}

	slots := GenerateSlots(*window, time.Duration(q.Duration)*time.Minute, booked)
	s.countQuery("ok")
	return slots, nil
}

// BookAppointment validates req and commits it unless the interval overlaps
// another appointment of the same doctor. Conflicts fail with a slot
// unavailable error and leave nothing behind.
func (s *Service) BookAppointment(ctx context.Context, req model.BookAppointmentRequest) (*model.Appointment, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.BookingLatency)
		defer timer.ObserveDuration()
	}

	if err := s.validateBooking(ctx, req); err != nil {
		s.countBooking("invalid")
		return nil, err
	}

	apt := &model.Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.AppointmentStatusPending,
		Notes:     req.Notes,
	}

	if err := s.appointments.Book(ctx, apt, model.NewAppointmentBookedEvent()); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotConflict):
			s.countBooking("conflict")
			s.logger.Info("Booking rejected, slot taken",
				"doctor_id", req.DoctorID, "start_time", req.StartTime, "end_time", req.EndTime)
			return nil, apperrors.NewSlotUnavailable(err)
		case errors.Is(err, repository.ErrNotFound):
			s.countBooking("invalid")
			return nil, missingReference("doctor_id")
		default:
			s.countBooking("error")
			s.logger.Error(err, "Failed to book appointment", "doctor_id", req.DoctorID)
			return nil, apperrors.NewInternal(err)
		}
	}
	s.countBooking("committed")
	s.logger.Info("Appointment booked",
		"appointment_id", apt.ID, "doctor_id", apt.DoctorID, "patient_id", apt.PatientID)

	if s.reminders != nil {
		if err := s.reminders.Schedule(ctx, apt); err != nil {
			s.logger.Error(err, "Failed to schedule reminder", "appointment_id", apt.ID)
		}
	}
	return apt, nil
}

// validateBooking runs every input check before storage is touched.
func (s *Service) validateBooking(ctx context.Context, req model.BookAppointmentRequest) error {
	var fields []apperrors.FieldError
	if err := s.validator.Validate(&req); err != nil {
		appErr, ok := apperrors.As(err)
		if !ok || appErr.Code != apperrors.ErrValidation {
			return err
		}
		fields = append(fields, appErr.Fields...)
	}
	if !req.StartTime.IsZero() && !req.StartTime.After(s.now()) {
		fields = append(fields, apperrors.FieldError{Field: "start_time", Message: "must be in the future"})
	}
	if len(fields) > 0 {
		return apperrors.NewValidation("validation failed", fields...)
	}

	doctorExists, err := s.doctors.Exists(ctx, req.DoctorID)
	if err != nil {
		s.logger.Error(err, "Failed to look up doctor", "doctor_id", req.DoctorID)
		return apperrors.NewInternal(err)
	}
	if !doctorExists {
		fields = append(fields, apperrors.FieldError{Field: "doctor_id", Message: "does not exist"})
	}

	patientExists, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		s.logger.Error(err, "Failed to look up patient", "patient_id", req.PatientID)
		return apperrors.NewInternal(err)
	}
	if !patientExists {
		fields = append(fields, apperrors.FieldError{Field: "patient_id", Message: "does not exist"})
	}

	if len(fields) > 0 {
		return apperrors.NewValidation("referenced record does not exist", fields...)
	}
	return nil
}

func missingReference(field string) error {
	return apperrors.NewValidation("referenced record does not exist",
		apperrors.FieldError{Field: field, Message: "does not exist"})
}

func (s *Service) countQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.SlotQueries.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.Bookings.WithLabelValues(outcome).Inc()
	}
}

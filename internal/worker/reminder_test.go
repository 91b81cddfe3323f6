package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service/reminder"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

type recordingSender struct {
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newReminderFixture(t *testing.T) (*ReminderHandler, *recordingSender, *model.Appointment) {
	t.Helper()
	store := memory.NewStore()
	doctor := store.AddDoctor(&model.Doctor{Name: "Dr. Quinn"})
	patient := store.AddPatient(&model.Patient{Name: "Jane Roe", Email: "jane@example.com"})
	appointments := memory.NewAppointmentRepository(store)

	apt := &model.Appointment{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2030, 1, 7, 10, 30, 0, 0, time.UTC),
		Status:    model.AppointmentStatusPending,
	}
	require.NoError(t, appointments.Book(context.Background(), apt, nil))

	sender := &recordingSender{}
	h := NewReminderHandler(appointments, memory.NewDoctorRepository(store), memory.NewPatientRepository(store),
		sender, time.UTC, logger.Nop())
	return h, sender, apt
}

func TestReminderHandlerSendsEmail(t *testing.T) {
	h, sender, apt := newReminderFixture(t)

	task, err := reminder.NewTask(apt.ID)
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "jane@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "Dr. Quinn")
	assert.Contains(t, sender.sent[0].Body, "Monday, 7 January 2030 at 10:00")
}

func TestReminderHandlerSkipsRetryForMissingAppointment(t *testing.T) {
	h, sender, _ := newReminderFixture(t)

	task, err := reminder.NewTask(404)
	require.NoError(t, err)
	err = h.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(reminder.TypeAppointmentReminder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, sender.sent)
}

func TestReminderHandlerRetriesSendFailures(t *testing.T) {
	h, sender, apt := newReminderFixture(t)
	sender.err = errors.New("smtp timeout")

	task, err := reminder.NewTask(apt.ID)
	require.NoError(t, err)
	err = h.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

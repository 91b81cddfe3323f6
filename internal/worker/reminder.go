package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/reminder"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// ReminderHandler e-mails patients about upcoming appointments.
type ReminderHandler struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	sender       email.Sender
	loc          *time.Location
	logger       *logger.Logger
}

func NewReminderHandler(
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	sender email.Sender,
	loc *time.Location,
	log *logger.Logger,
) *ReminderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderHandler{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		sender:       sender,
		loc:          loc,
		logger:       log,
	}
}

// Register mounts the handler on mux.
func (h *ReminderHandler) Register(mux *asynq.ServeMux) {
	mux.Handle(reminder.TypeAppointmentReminder, h)
}

func (h *ReminderHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p reminder.Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	apt, err := h.appointments.Get(ctx, p.AppointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("appointment %d: %w", p.AppointmentID, asynq.SkipRetry)
		}
		return err
	}
	if !apt.Blocking() {
		h.logger.Info("Skipping reminder for cancelled appointment", "appointment_id", apt.ID)
		return nil
	}

	patient, err := h.patients.Get(ctx, apt.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("patient %d: %w", apt.PatientID, asynq.SkipRetry)
		}
		return err
	}

	doctorName := "your doctor"
	if doctor, err := h.doctors.Get(ctx, apt.DoctorID); err == nil {
		doctorName = doctor.Name
	}

	msg := email.Message{
		To:      patient.Email,
		Subject: "Appointment reminder",
		Body: fmt.Sprintf("Hello %s,\n\nThis is a reminder of your appointment with %s on %s.\n",
			patient.Name, doctorName, apt.StartTime.In(h.loc).Format("Monday, 2 January 2006 at 15:04")),
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	h.logger.Info("Reminder sent", "appointment_id", apt.ID, "patient_id", patient.ID)
	return nil
}

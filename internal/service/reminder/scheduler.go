package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

const TypeAppointmentReminder = "appointment:reminder"

type Payload struct {
	AppointmentID int64 `json:"appointment_id"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Config struct {
	LeadTime time.Duration
	Queue    string
	MaxRetry int
}

// Scheduler queues one reminder per appointment, LeadTime before it starts.
type Scheduler struct {
	client  Enqueuer
	cfg     Config
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewScheduler(client Enqueuer, cfg Config, log *logger.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.Queue == "" {
		cfg.Queue = "default"
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{client: client, cfg: cfg, now: time.Now, logger: log, metrics: m}
}

// TaskID keeps reminders unique per appointment.
func TaskID(appointmentID int64) string {
	return fmt.Sprintf("appointment-reminder-%d", appointmentID)
}

func NewTask(appointmentID int64) (*asynq.Task, error) {
	b, err := json.Marshal(Payload{AppointmentID: appointmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAppointmentReminder, b), nil
}

// Schedule enqueues the reminder. Appointments starting within the lead
// time get none.
func (s *Scheduler) Schedule(ctx context.Context, apt *model.Appointment) error {
	fireAt := apt.StartTime.Add(-s.cfg.LeadTime)
	if !fireAt.After(s.now()) {
		s.count("skipped")
		return nil
	}

	task, err := NewTask(apt.ID)
	if err != nil {
		s.count("error")
		return fmt.Errorf("failed to build reminder task: %w", err)
	}

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(fireAt),
		asynq.TaskID(TaskID(apt.ID)),
		asynq.Queue(s.cfg.Queue),
		asynq.MaxRetry(s.cfg.MaxRetry),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			s.count("duplicate")
			return nil
		}
		s.count("error")
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}

	s.count("enqueued")
	s.logger.Debug("Reminder scheduled", "appointment_id", apt.ID, "task_id", info.ID, "fire_at", fireAt)
	return nil
}

func (s *Scheduler) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RemindersQueued.WithLabelValues(outcome).Inc()
	}
}

package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "task"}, nil
}

func newScheduler(client Enqueuer, now time.Time) *Scheduler {
	s := NewScheduler(client, Config{LeadTime: 24 * time.Hour}, nil, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestScheduleEnqueuesAheadOfStart(t *testing.T) {
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	client := &fakeEnqueuer{}
	s := newScheduler(client, now)

	apt := &model.Appointment{ID: 7, StartTime: now.Add(72 * time.Hour)}
	require.NoError(t, s.Schedule(context.Background(), apt))

	require.Len(t, client.tasks, 1)
	assert.Equal(t, TypeAppointmentReminder, client.tasks[0].Type())

	var p Payload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &p))
	assert.Equal(t, int64(7), p.AppointmentID)

	var taskID string
	var processAt time.Time
	for _, o := range client.opts[0] {
		switch o.Type() {
		case asynq.TaskIDOpt:
			taskID = o.Value().(string)
		case asynq.ProcessAtOpt:
			processAt = o.Value().(time.Time)
		}
	}
	assert.Equal(t, TaskID(7), taskID)
	assert.Equal(t, now.Add(48*time.Hour), processAt)
}

func TestScheduleSkipsImminentAppointments(t *testing.T) {
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	client := &fakeEnqueuer{}
	s := newScheduler(client, now)

	require.NoError(t, s.Schedule(context.Background(), &model.Appointment{ID: 1, StartTime: now.Add(2 * time.Hour)}))
	assert.Empty(t, client.tasks)
}

func TestScheduleTreatsDuplicateAsDone(t *testing.T) {
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	s := newScheduler(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, now)
	assert.NoError(t, s.Schedule(context.Background(), &model.Appointment{ID: 1, StartTime: now.Add(48 * time.Hour)}))

	s = newScheduler(&fakeEnqueuer{err: errors.New("redis down")}, now)
	assert.Error(t, s.Schedule(context.Background(), &model.Appointment{ID: 1, StartTime: now.Add(48 * time.Hour)}))
}

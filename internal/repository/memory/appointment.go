package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type appointmentRepository struct {
	store *Store
}

func NewAppointmentRepository(store *Store) repository.AppointmentRepository {
	return &appointmentRepository{store: store}
}

func (r *appointmentRepository) Get(_ context.Context, id int64) (*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *appointmentRepository) ListOverlapping(_ context.Context, doctorID int64, from, to time.Time) ([]*model.Appointment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.overlapping(doctorID, from, to), nil
}

// overlapping must be called with the lock held.
func (s *Store) overlapping(doctorID int64, from, to time.Time) []*model.Appointment {
	out := []*model.Appointment{}
	for _, a := range s.appointments {
		if a.DoctorID != doctorID || !a.Blocking() {
			continue
		}
		if model.Overlaps(a.StartTime, a.EndTime, from, to) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *appointmentRepository) Book(_ context.Context, apt *model.Appointment, event *model.OutboxEvent) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.doctors[apt.DoctorID]; !ok || d.Deleted() {
		return repository.ErrNotFound
	}
	if len(s.overlapping(apt.DoctorID, apt.StartTime, apt.EndTime)) > 0 {
		return repository.ErrSlotConflict
	}

	now := s.now()
	id := s.id()

	if event != nil {
		payload, err := json.Marshal(model.AppointmentBookedPayload{
			AppointmentID: id,
			DoctorID:      apt.DoctorID,
			PatientID:     apt.PatientID,
			StartTime:     apt.StartTime,
			EndTime:       apt.EndTime,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		event.AggregateID = id
		event.Payload = payload
		event.CreatedAt, event.UpdatedAt = now, now
		ev := *event
		s.outbox[event.ID] = &ev
	}

	apt.ID = id
	apt.CreatedAt, apt.UpdatedAt = now, now
	cp := *apt
	s.appointments[apt.ID] = &cp
	return nil
}

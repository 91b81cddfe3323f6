// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// Store holds all tables behind a single lock, which makes every Book call
// a serialized check-then-insert.
type Store struct {
	mu sync.RWMutex

	now func() time.Time

	doctors      map[int64]*model.Doctor
	patients     map[int64]*model.Patient
	availability map[int64][]*model.WeeklyAvailability
	appointments map[int64]*model.Appointment
	outbox       map[uuid.UUID]*model.OutboxEvent

	nextID int64
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		doctors:      make(map[int64]*model.Doctor),
		patients:     make(map[int64]*model.Patient),
		availability: make(map[int64][]*model.WeeklyAvailability),
		appointments: make(map[int64]*model.Appointment),
		outbox:       make(map[uuid.UUID]*model.OutboxEvent),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddDoctor stores d, assigning an id when it has none.
func (s *Store) AddDoctor(d *model.Doctor) *model.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == 0 {
		d.ID = s.id()
	} else if d.ID > s.nextID {
		s.nextID = d.ID
	}
	d.CreatedAt, d.UpdatedAt = s.now(), s.now()
	s.doctors[d.ID] = d
	return d
}

// AddPatient stores p, assigning an id when it has none.
func (s *Store) AddPatient(p *model.Patient) *model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.id()
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.patients[p.ID] = p
	return p
}

// Appointments returns a snapshot of every stored appointment ordered by id.
func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OutboxEvents returns a snapshot of the outbox ordered by creation.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PingContext always succeeds.
func (s *Store) PingContext(context.Context) error {
	return nil
}

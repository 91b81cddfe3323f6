package memory

import (
	"context"
	"sort"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type availabilityRepository struct {
	store *Store
}

func NewAvailabilityRepository(store *Store) repository.AvailabilityRepository {
	return &availabilityRepository{store: store}
}

func (r *availabilityRepository) ListByDoctor(_ context.Context, doctorID int64) ([]*model.WeeklyAvailability, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := r.store.availability[doctorID]
	out := make([]*model.WeeklyAvailability, 0, len(rows))
	for _, row := range rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *availabilityRepository) ReplaceForDoctor(_ context.Context, doctorID int64, days []*model.WeeklyAvailability) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	seen := make(map[int]bool, len(days))
	for _, day := range days {
		if seen[int(day.DayOfWeek)] {
			return repository.ErrDuplicate
		}
		seen[int(day.DayOfWeek)] = true
	}

	rows := make([]*model.WeeklyAvailability, 0, len(days))
	for _, day := range days {
		day.ID = r.store.id()
		day.DoctorID = doctorID
		day.CreatedAt, day.UpdatedAt = r.store.now(), r.store.now()
		cp := *day
		rows = append(rows, &cp)
	}
	r.store.availability[doctorID] = rows
	return nil
}

// AppendAvailability adds a row without the weekday uniqueness check, the
// way legacy data can contain duplicates.
func (s *Store) AppendAvailability(row *model.WeeklyAvailability) *model.WeeklyAvailability {
	s.mu.Lock()
	defer s.mu.Unlock()

	row.ID = s.id()
	row.CreatedAt, row.UpdatedAt = s.now(), s.now()
	cp := *row
	s.availability[row.DoctorID] = append(s.availability[row.DoctorID], &cp)
	return row
}

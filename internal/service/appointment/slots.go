package appointment

import (
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// GenerateSlots walks window in fixed steps of d and keeps every candidate
// [t, t+d) that fits in the window and overlaps no busy appointment. A
// conflicting candidate is dropped, not shifted.
func GenerateSlots(window model.Window, d time.Duration, busy []*model.Appointment) []model.Slot {
	slots := []model.Slot{}
	if d <= 0 {
		return slots
	}

	for t := window.Start; !t.Add(d).After(window.End); t = t.Add(d) {
		end := t.Add(d)
		if conflicts(t, end, busy) {
			continue
		}
		slots = append(slots, model.Slot{Start: t, End: end})
	}
	return slots
}

func conflicts(start, end time.Time, busy []*model.Appointment) bool {
	for _, apt := range busy {
		if model.Overlaps(start, end, apt.StartTime, apt.EndTime) {
			return true
		}
	}
	return false
}

package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/hospital-api/internal/model"
)

func TestGenerateSlots(t *testing.T) {
	window := model.Window{Start: at(9, 0), End: at(10, 0)}

	t.Run("steps through the window", func(t *testing.T) {
		slots := GenerateSlots(window, 20*time.Minute, nil)
		assert.Equal(t, []model.Slot{
			{Start: at(9, 0), End: at(9, 20)},
			{Start: at(9, 20), End: at(9, 40)},
			{Start: at(9, 40), End: at(10, 0)},
		}, slots)
	})

	t.Run("drops a trailing partial slot", func(t *testing.T) {
		slots := GenerateSlots(window, 25*time.Minute, nil)
		assert.Len(t, slots, 2)
	})

	t.Run("duration longer than the window", func(t *testing.T) {
		assert.Empty(t, GenerateSlots(window, 90*time.Minute, nil))
	})

	t.Run("touching appointments do not conflict", func(t *testing.T) {
		busy := []*model.Appointment{{StartTime: at(8, 30), EndTime: at(9, 0)}, {StartTime: at(10, 0), EndTime: at(10, 30)}}
		assert.Len(t, GenerateSlots(window, 30*time.Minute, busy), 2)
	})

	t.Run("an appointment inside a slot removes it", func(t *testing.T) {
		busy := []*model.Appointment{{StartTime: at(9, 40), EndTime: at(9, 45)}}
		slots := GenerateSlots(window, 30*time.Minute, busy)
		assert.Equal(t, []model.Slot{{Start: at(9, 0), End: at(9, 30)}}, slots)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		assert.Empty(t, GenerateSlots(window, 0, nil))
	})
}

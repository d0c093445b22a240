// Package schedule вычисляет видимые студенту "открытые слоты":
// объявленная доступность минус занятые approved-бронированиями интервалы,
// без прошедших дат. Чистая функция от текущего состояния, не кэшируется.
package schedule

import (
	"time"

	"github.com/lessonmarket/backend/internal/model"
)

// dateGrace допуск на расхождение часов клиента и сервера:
// запись на вчерашнюю дату ещё показывается.
const dateGrace = 24 * time.Hour

// OpenSlot запись доступности после вычитания занятых интервалов
type OpenSlot struct {
	EntryID    int64             `json:"entry_id"`
	TeacherID  int64             `json:"teacher_id"`
	Day        model.DayKey      `json:"day"`
	TimeRanges []model.TimeRange `json:"time_ranges"`
}

// ProjectOpenSlots строит проекцию открытых слотов.
//
// Записи на день недели не фильтруются по дате; запись на конкретную дату
// остаётся, пока её дата не старше asOf минус сутки. Занятый интервал
// вычитается только при точном совпадении start/end — частичное перекрытие
// не вычитается (известное ограничение, поведение сохранено намеренно).
func ProjectOpenSlots(entries []*model.AvailabilityEntry, approved []*model.Booking, asOf time.Time) []OpenSlot {
	covered := make(map[model.SlotKey]bool, len(approved))
	for _, b := range approved {
		if b.Status != model.BookingStatusApproved {
			continue
		}
		covered[b.SlotKey()] = true
	}

	cutoff := asOf.Add(-dateGrace)

	var open []OpenSlot
	for _, entry := range entries {
		if !entry.Day.IsRecurring() {
			date, err := entry.Day.Date()
			if err != nil {
				continue
			}
			// Дата хранится без времени, сравниваем с концом дня
			if date.Add(24 * time.Hour).Before(cutoff) {
				continue
			}
		}

		var free []model.TimeRange
		for _, tr := range entry.TimeRanges {
			key := model.SlotKey{
				TeacherID: entry.TeacherID,
				Day:       entry.Day,
				Start:     tr.Start,
				End:       tr.End,
			}
			if covered[key] {
				continue
			}
			free = append(free, tr)
		}

		if len(free) == 0 {
			continue
		}

		open = append(open, OpenSlot{
			EntryID:    entry.ID,
			TeacherID:  entry.TeacherID,
			Day:        entry.Day,
			TimeRanges: free,
		})
	}

	return open
}

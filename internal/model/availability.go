package model

import "time"

// AvailabilityEntry объявление доступности учителя: набор интервалов
// для дня недели или конкретной даты. Интервалы заменяются целиком,
// частичного слияния нет.
type AvailabilityEntry struct {
	ID         int64       `json:"id"`
	TeacherID  int64       `json:"teacher_id"`
	Day        DayKey      `json:"day"`
	TimeRanges []TimeRange `json:"time_ranges"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

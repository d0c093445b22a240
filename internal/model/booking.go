package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "pending"  // Ожидает решения учителя
	BookingStatusApproved BookingStatus = "approved" // Одобрено учителем
	BookingStatusRejected BookingStatus = "rejected" // Отклонено учителем или каскадом
)

// Booking заявка студента на слот. Жизненный цикл: pending -> approved/rejected.
// Удаление — физическое, не статус.
type Booking struct {
	ID        int64         `json:"id"`
	StudentID int64         `json:"student_id"`
	TeacherID int64         `json:"teacher_id"`
	Day       DayKey        `json:"day"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SlotKey возвращает ключ слота, на который претендует заявка
func (b *Booking) SlotKey() SlotKey {
	return SlotKey{
		TeacherID: b.TeacherID,
		Day:       b.Day,
		Start:     b.StartTime,
		End:       b.EndTime,
	}
}

// SlotKey тройка (учитель, день, интервал), однозначно определяющая
// бронируемый слот. Много заявок могут ссылаться на один ключ, но
// approved среди них может быть максимум одна.
type SlotKey struct {
	TeacherID int64
	Day       DayKey
	Start     string
	End       string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%d:%s:%s-%s", k.TeacherID, k.Day, k.Start, k.End)
}

// Range возвращает интервал ключа
func (k SlotKey) Range() TimeRange {
	return TimeRange{Start: k.Start, End: k.End}
}

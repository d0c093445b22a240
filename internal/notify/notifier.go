// Package notify задаёт контракт рассылки событий изменений.
// Доставка — точка расширения: ядро знает только имена топиков и форму
// полезной нагрузки, транспорт подставляется конструктором.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Имена событий
const (
	EventAvailabilityDeclared = "availability-declared"
	EventAvailabilityUpdated  = "availability-updated"
	EventAvailabilityRemoved  = "availability-removed"
	EventBookingRequested     = "booking-requested"
	EventBookingStatusChanged = "booking-status-changed"
	EventBookingsChanged      = "bookings-changed"
)

// Notifier публикует событие в топик. Вызов best-effort: реализация не
// должна возвращать ошибку в путь мутации и не должна блокировать её.
type Notifier interface {
	Publish(ctx context.Context, topic, event string, payload any)
}

// Envelope общая форма полезной нагрузки события
type Envelope struct {
	EventID string `json:"event_id"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// NewEnvelope оборачивает полезную нагрузку, присваивая ID для дедупликации
// на стороне потребителя
func NewEnvelope(event string, payload any) Envelope {
	return Envelope{
		EventID: uuid.NewString(),
		Event:   event,
		Payload: payload,
	}
}

// ============ Топики ============

// TopicTeacherAvailability топик учителя про его собственное расписание
func TopicTeacherAvailability(teacherID int64) string {
	return fmt.Sprintf("teacher-availability:%d", teacherID)
}

// TopicAvailabilityForTeacher топик студентов, просматривающих расписание учителя
func TopicAvailabilityForTeacher(teacherID int64) string {
	return fmt.Sprintf("availability-for-teacher:%d", teacherID)
}

// TopicUser персональный топик пользователя
func TopicUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// TopicTeacherBookings топик списка заявок учителя
func TopicTeacherBookings(teacherID int64) string {
	return fmt.Sprintf("teacher-bookings:%d", teacherID)
}

// TopicStudentBookings топик списка заявок студента
func TopicStudentBookings(studentID int64) string {
	return fmt.Sprintf("student-bookings:%d", studentID)
}

// Noop реализация без доставки, для тестов и запуска без брокера
type Noop struct{}

func (Noop) Publish(ctx context.Context, topic, event string, payload any) {}

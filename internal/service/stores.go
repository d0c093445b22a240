package service

import (
	"context"

	"github.com/lessonmarket/backend/internal/model"
)

// AvailabilityTx операции над инвентарём внутри транзакции.
// GetByID берёт блокировку строки до конца транзакции.
type AvailabilityTx interface {
	Create(ctx context.Context, entry *model.AvailabilityEntry) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error)
	Update(ctx context.Context, entry *model.AvailabilityEntry) error
	Delete(ctx context.Context, id int64) error
}

// AvailabilityStore хранилище объявленной доступности
type AvailabilityStore interface {
	GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.AvailabilityEntry, error)
	// DeleteExpiredDates удаляет записи на конкретные даты раньше cutoff
	// (ISO-дата) и возвращает ID затронутых учителей без повторов
	DeleteExpiredDates(ctx context.Context, cutoff string) ([]int64, error)
	InTx(ctx context.Context, fn func(tx AvailabilityTx) error) error
}

// BookingTx операции над журналом заявок внутри транзакции.
// LockSlot пинит все строки ключа слота (SELECT FOR UPDATE), чтобы два
// конкурентных одобрения сериализовались на БД.
type BookingTx interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	LockSlot(ctx context.Context, key model.SlotKey) error
	// ApprovedBySlot ищет approved-заявку по ключу слота, исключая excludeID
	ApprovedBySlot(ctx context.Context, key model.SlotKey, excludeID int64) (*model.Booking, error)
	// StudentActiveBySlot ищет pending/approved заявку студента на ключ слота
	StudentActiveBySlot(ctx context.Context, studentID int64, key model.SlotKey) (*model.Booking, error)
	// CountOtherPending считает pending-заявки других студентов на ключ слота
	CountOtherPending(ctx context.Context, key model.SlotKey, excludeStudentID int64) (int, error)
	// RejectOtherPending каскадно переводит в rejected все pending-заявки
	// ключа слота кроме keepID, возвращает число затронутых
	RejectOtherPending(ctx context.Context, key model.SlotKey, keepID int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	Delete(ctx context.Context, id int64) error
}

// BookingStore хранилище журнала заявок
type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error)
	ListApprovedByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error)
	InTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// ApprovedBookingSource часть BookingStore, нужная проектору
type ApprovedBookingSource interface {
	ListApprovedByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error)
}

// ContactChecker внешний коллаборатор: история переписки студента и учителя
type ContactChecker interface {
	HasPriorContact(ctx context.Context, studentID, teacherID int64) (bool, error)
}

// Actor идентичность вызывающего, разрешённая внешней аутентификацией
type Actor struct {
	UserID int64
	Admin  bool
}

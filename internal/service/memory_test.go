package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lessonmarket/backend/internal/model"
)

// Память вместо postgres: те же интерфейсы хранилищ, мьютекс вместо
// транзакции. Достаточно для последовательных сценариев сервисов.

type memBookings struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{rows: make(map[int64]*model.Booking)}
}

func (m *memBookings) InTx(ctx context.Context, fn func(tx BookingTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn((*memBookingTx)(m))
}

func (m *memBookings) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*memBookingTx)(m).GetByID(ctx, id)
}

func (m *memBookings) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return m.listWhere(func(b *model.Booking) bool { return b.TeacherID == teacherID })
}

func (m *memBookings) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return m.listWhere(func(b *model.Booking) bool { return b.StudentID == studentID })
}

func (m *memBookings) ListApprovedByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return m.listWhere(func(b *model.Booking) bool {
		return b.TeacherID == teacherID && b.Status == model.BookingStatusApproved
	})
}

func (m *memBookings) listWhere(match func(*model.Booking) bool) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Booking
	for _, b := range m.rows {
		if match(b) {
			copied := *b
			out = append(out, &copied)
		}
	}
	// Новые первыми
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// memBookingTx методы без блокировки: мьютекс уже удерживается в InTx
type memBookingTx memBookings

func (m *memBookingTx) Create(ctx context.Context, booking *model.Booking) error {
	m.nextID++
	booking.ID = m.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	copied := *booking
	m.rows[booking.ID] = &copied
	return nil
}

func (m *memBookingTx) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	b, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (m *memBookingTx) LockSlot(ctx context.Context, key model.SlotKey) error {
	return nil
}

func (m *memBookingTx) ApprovedBySlot(ctx context.Context, key model.SlotKey, excludeID int64) (*model.Booking, error) {
	for _, b := range m.rows {
		if b.SlotKey() == key && b.Status == model.BookingStatusApproved && b.ID != excludeID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memBookingTx) StudentActiveBySlot(ctx context.Context, studentID int64, key model.SlotKey) (*model.Booking, error) {
	for _, b := range m.rows {
		if b.SlotKey() == key && b.StudentID == studentID &&
			(b.Status == model.BookingStatusPending || b.Status == model.BookingStatusApproved) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memBookingTx) CountOtherPending(ctx context.Context, key model.SlotKey, excludeStudentID int64) (int, error) {
	count := 0
	for _, b := range m.rows {
		if b.SlotKey() == key && b.Status == model.BookingStatusPending && b.StudentID != excludeStudentID {
			count++
		}
	}
	return count, nil
}

func (m *memBookingTx) RejectOtherPending(ctx context.Context, key model.SlotKey, keepID int64) (int64, error) {
	var affected int64
	for _, b := range m.rows {
		if b.SlotKey() == key && b.Status == model.BookingStatusPending && b.ID != keepID {
			b.Status = model.BookingStatusRejected
			b.UpdatedAt = time.Now()
			affected++
		}
	}
	return affected, nil
}

func (m *memBookingTx) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	b, ok := m.rows[id]
	if !ok {
		return nil
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	return nil
}

func (m *memBookingTx) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

type memAvailability struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.AvailabilityEntry
}

func newMemAvailability() *memAvailability {
	return &memAvailability{rows: make(map[int64]*model.AvailabilityEntry)}
}

func (m *memAvailability) InTx(ctx context.Context, fn func(tx AvailabilityTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn((*memAvailabilityTx)(m))
}

func (m *memAvailability) GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*memAvailabilityTx)(m).GetByID(ctx, id)
}

func (m *memAvailability) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.AvailabilityEntry
	for _, e := range m.rows {
		if e.TeacherID == teacherID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAvailability) DeleteExpiredDates(ctx context.Context, cutoff string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int64]bool)
	var teacherIDs []int64
	for id, e := range m.rows {
		if e.Day.Kind == model.DayKindDate && e.Day.Value < cutoff {
			delete(m.rows, id)
			if !seen[e.TeacherID] {
				seen[e.TeacherID] = true
				teacherIDs = append(teacherIDs, e.TeacherID)
			}
		}
	}
	return teacherIDs, nil
}

type memAvailabilityTx memAvailability

func (m *memAvailabilityTx) Create(ctx context.Context, entry *model.AvailabilityEntry) error {
	m.nextID++
	entry.ID = m.nextID
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt

	copied := *entry
	m.rows[entry.ID] = &copied
	return nil
}

func (m *memAvailabilityTx) GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *memAvailabilityTx) Update(ctx context.Context, entry *model.AvailabilityEntry) error {
	copied := *entry
	copied.UpdatedAt = time.Now()
	m.rows[entry.ID] = &copied
	return nil
}

func (m *memAvailabilityTx) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

// stubContacts фиксированный ответ проверки переписки
type stubContacts struct {
	hasContact bool
}

func (s stubContacts) HasPriorContact(ctx context.Context, studentID, teacherID int64) (bool, error) {
	return s.hasContact, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/lessonmarket/backend/internal/apperrors"
	"github.com/lessonmarket/backend/internal/model"
	"github.com/lessonmarket/backend/internal/notify"
	"go.uber.org/zap"
)

// WarningOtherPending несмертельное предупреждение при создании заявки:
// на тот же слот уже стоит pending-заявка другого студента. Обе остаются
// в очереди, конфликт разрешает учитель.
const WarningOtherPending = "slot has other pending requests"

type BookingService struct {
	store    BookingStore
	contacts ContactChecker
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewBookingService(
	store BookingStore,
	contacts ContactChecker,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:    store,
		contacts: contacts,
		notifier: notifier,
		logger:   logger,
	}
}

// Create создаёт pending-заявку студента на слот.
// Возвращает предупреждение, если на слот уже претендует другой студент.
func (s *BookingService) Create(ctx context.Context, studentID, teacherID int64, day model.DayKey, tr model.TimeRange) (*model.Booking, string, error) {
	if err := day.Validate(); err != nil {
		return nil, "", apperrors.Validation("invalid day: %v", err)
	}
	if err := tr.Validate(); err != nil {
		return nil, "", apperrors.Validation("invalid time range: %v", err)
	}

	hasContact, err := s.contacts.HasPriorContact(ctx, studentID, teacherID)
	if err != nil {
		return nil, "", fmt.Errorf("check prior contact: %w", err)
	}
	if !hasContact {
		return nil, "", apperrors.Policy("contact teacher first")
	}

	booking := &model.Booking{
		StudentID: studentID,
		TeacherID: teacherID,
		Day:       day,
		StartTime: tr.Start,
		EndTime:   tr.End,
		Status:    model.BookingStatusPending,
	}
	key := booking.SlotKey()

	var warning string
	err = s.store.InTx(ctx, func(tx BookingTx) error {
		if err := tx.LockSlot(ctx, key); err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		approved, err := tx.ApprovedBySlot(ctx, key, 0)
		if err != nil {
			return fmt.Errorf("check approved booking: %w", err)
		}
		if approved != nil {
			return apperrors.Conflict("slot already booked")
		}

		dup, err := tx.StudentActiveBySlot(ctx, studentID, key)
		if err != nil {
			return fmt.Errorf("check duplicate request: %w", err)
		}
		if dup != nil {
			return apperrors.Conflict("duplicate request")
		}

		if err := tx.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		others, err := tx.CountOtherPending(ctx, key, studentID)
		if err != nil {
			return fmt.Errorf("count competing requests: %w", err)
		}
		if others > 0 {
			warning = WarningOtherPending
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("Booking requested",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("teacher_id", teacherID),
		zap.String("slot", key.String()),
		zap.Bool("has_competitors", warning != ""),
	)

	s.notifier.Publish(ctx, notify.TopicUser(teacherID), notify.EventBookingRequested, booking)
	s.notifyBookingLists(ctx, booking)

	return booking, warning, nil
}

// SetStatus переводит заявку в approved или rejected.
//
// Одобрение перепроверяет ключ слота под блокировкой: если approved-заявка
// появилась между чтением и одобрением, возвращается конфликт и состояние
// не меняется. Все прочие pending-заявки того же ключа каскадно переходят
// в rejected в той же транзакции.
func (s *BookingService) SetStatus(ctx context.Context, bookingID, actingTeacher int64, newStatus model.BookingStatus) (*model.Booking, error) {
	if newStatus != model.BookingStatusApproved && newStatus != model.BookingStatusRejected {
		return nil, apperrors.Validation("status must be approved or rejected")
	}

	var (
		booking  *model.Booking
		changed  bool
		cascaded int64
	)

	err := s.store.InTx(ctx, func(tx BookingTx) error {
		var err error
		booking, err = tx.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil {
			return apperrors.NotFound("booking %d not found", bookingID)
		}
		if booking.TeacherID != actingTeacher {
			return apperrors.Authorization("booking does not belong to teacher")
		}

		if booking.Status == newStatus {
			// Повторное одобрение/отклонение — no-op, не ошибка
			return nil
		}

		key := booking.SlotKey()

		if newStatus == model.BookingStatusApproved {
			if err := tx.LockSlot(ctx, key); err != nil {
				return fmt.Errorf("lock slot: %w", err)
			}

			other, err := tx.ApprovedBySlot(ctx, key, booking.ID)
			if err != nil {
				return fmt.Errorf("check approved booking: %w", err)
			}
			if other != nil {
				return apperrors.Conflict("slot taken meanwhile")
			}

			cascaded, err = tx.RejectOtherPending(ctx, key, booking.ID)
			if err != nil {
				return fmt.Errorf("cascade rejection: %w", err)
			}
		}

		if err := tx.UpdateStatus(ctx, booking.ID, newStatus); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		booking.Status = newStatus
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return booking, nil
	}

	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("teacher_id", actingTeacher),
		zap.String("status", string(newStatus)),
		zap.Int64("cascaded_rejections", cascaded),
	)

	s.notifier.Publish(ctx, notify.TopicUser(booking.StudentID), notify.EventBookingStatusChanged, booking)
	s.notifyBookingLists(ctx, booking)

	if newStatus == model.BookingStatusApproved {
		// Открытый слот исчез, зрители расписания должны обновиться
		s.notifyAvailabilityChanged(ctx, booking.TeacherID)
	}

	return booking, nil
}

// Delete безвозвратно удаляет заявку. Разрешено её студенту, её учителю
// или администратору.
func (s *BookingService) Delete(ctx context.Context, bookingID int64, actor Actor) error {
	var deleted *model.Booking

	err := s.store.InTx(ctx, func(tx BookingTx) error {
		booking, err := tx.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil {
			return apperrors.NotFound("booking %d not found", bookingID)
		}
		if !actor.Admin && actor.UserID != booking.StudentID && actor.UserID != booking.TeacherID {
			return apperrors.Authorization("no permission to delete this booking")
		}
		if err := tx.Delete(ctx, bookingID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		deleted = booking
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking deleted",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actor.UserID),
		zap.Bool("admin", actor.Admin),
		zap.String("status", string(deleted.Status)),
	)

	s.notifyBookingLists(ctx, deleted)

	if deleted.Status == model.BookingStatusApproved {
		// Слот снова открыт
		s.notifyAvailabilityChanged(ctx, deleted.TeacherID)
	}

	return nil
}

// ListByTeacher возвращает заявки учителя, новые первыми
func (s *BookingService) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return s.store.ListByTeacher(ctx, teacherID)
}

// ListByStudent возвращает заявки студента, новые первыми
func (s *BookingService) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return s.store.ListByStudent(ctx, studentID)
}

// GetByID возвращает заявку по ID
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.store.GetByID(ctx, bookingID)
}

func (s *BookingService) notifyBookingLists(ctx context.Context, booking *model.Booking) {
	s.notifier.Publish(ctx, notify.TopicTeacherBookings(booking.TeacherID), notify.EventBookingsChanged, booking)
	s.notifier.Publish(ctx, notify.TopicStudentBookings(booking.StudentID), notify.EventBookingsChanged, booking)
}

func (s *BookingService) notifyAvailabilityChanged(ctx context.Context, teacherID int64) {
	s.notifier.Publish(ctx, notify.TopicTeacherAvailability(teacherID), notify.EventAvailabilityUpdated, map[string]int64{"teacher_id": teacherID})
	s.notifier.Publish(ctx, notify.TopicAvailabilityForTeacher(teacherID), notify.EventAvailabilityUpdated, map[string]int64{"teacher_id": teacherID})
}

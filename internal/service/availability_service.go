package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonmarket/backend/internal/apperrors"
	"github.com/lessonmarket/backend/internal/model"
	"github.com/lessonmarket/backend/internal/notify"
	"github.com/lessonmarket/backend/internal/schedule"
	"go.uber.org/zap"
)

type AvailabilityService struct {
	store    AvailabilityStore
	bookings ApprovedBookingSource
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewAvailabilityService(
	store AvailabilityStore,
	bookings ApprovedBookingSource,
	notifier notify.Notifier,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		store:    store,
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
	}
}

// Declare создаёт запись доступности учителя
func (s *AvailabilityService) Declare(ctx context.Context, teacherID int64, day model.DayKey, ranges []model.TimeRange) (*model.AvailabilityEntry, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	if err := day.Validate(); err != nil {
		return nil, apperrors.Validation("invalid day: %v", err)
	}

	entry := &model.AvailabilityEntry{
		TeacherID:  teacherID,
		Day:        day,
		TimeRanges: ranges,
	}

	err := s.store.InTx(ctx, func(tx AvailabilityTx) error {
		return tx.Create(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("create availability entry: %w", err)
	}

	s.logger.Info("Availability declared",
		zap.Int64("entry_id", entry.ID),
		zap.Int64("teacher_id", teacherID),
		zap.String("day", day.String()),
		zap.Int("ranges", len(ranges)),
	)

	s.notifyAvailability(ctx, teacherID, notify.EventAvailabilityDeclared, entry)

	return entry, nil
}

// Replace целиком заменяет день и/или набор интервалов записи.
// Прежние интервалы отбрасываются, частичного слияния нет.
func (s *AvailabilityService) Replace(ctx context.Context, entryID, actingTeacher int64, newDay *model.DayKey, newRanges []model.TimeRange) (*model.AvailabilityEntry, error) {
	if newDay == nil && newRanges == nil {
		return nil, apperrors.Validation("nothing to replace")
	}
	if newRanges != nil {
		if err := validateRanges(newRanges); err != nil {
			return nil, err
		}
	}
	if newDay != nil {
		if err := newDay.Validate(); err != nil {
			return nil, apperrors.Validation("invalid day: %v", err)
		}
	}

	var entry *model.AvailabilityEntry
	err := s.store.InTx(ctx, func(tx AvailabilityTx) error {
		var err error
		entry, err = tx.GetByID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("get availability entry: %w", err)
		}
		if entry == nil {
			return apperrors.NotFound("availability entry %d not found", entryID)
		}
		if entry.TeacherID != actingTeacher {
			return apperrors.Authorization("availability entry does not belong to teacher")
		}

		if newDay != nil {
			entry.Day = *newDay
		}
		if newRanges != nil {
			entry.TimeRanges = newRanges
		}

		return tx.Update(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability replaced",
		zap.Int64("entry_id", entryID),
		zap.Int64("teacher_id", actingTeacher),
	)

	s.notifyAvailability(ctx, actingTeacher, notify.EventAvailabilityUpdated, entry)

	return entry, nil
}

// Delete безвозвратно удаляет запись доступности
func (s *AvailabilityService) Delete(ctx context.Context, entryID, actingTeacher int64) error {
	err := s.store.InTx(ctx, func(tx AvailabilityTx) error {
		entry, err := tx.GetByID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("get availability entry: %w", err)
		}
		if entry == nil {
			return apperrors.NotFound("availability entry %d not found", entryID)
		}
		if entry.TeacherID != actingTeacher {
			return apperrors.Authorization("availability entry does not belong to teacher")
		}
		return tx.Delete(ctx, entryID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Availability deleted",
		zap.Int64("entry_id", entryID),
		zap.Int64("teacher_id", actingTeacher),
	)

	s.notifyAvailability(ctx, actingTeacher, notify.EventAvailabilityRemoved, map[string]int64{"entry_id": entryID})

	return nil
}

// ListByTeacher возвращает все записи учителя, включая прошедшие даты
func (s *AvailabilityService) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.AvailabilityEntry, error) {
	return s.store.ListByTeacher(ctx, teacherID)
}

// OpenSlots строит видимую студенту проекцию открытых слотов на момент asOf
func (s *AvailabilityService) OpenSlots(ctx context.Context, teacherID int64, asOf time.Time) ([]schedule.OpenSlot, error) {
	entries, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	approved, err := s.bookings.ListApprovedByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list approved bookings: %w", err)
	}

	return schedule.ProjectOpenSlots(entries, approved, asOf), nil
}

// PruneExpiredDates удаляет записи на даты старше keepDays дней назад.
// Вызывается фоновой задачей.
func (s *AvailabilityService) PruneExpiredDates(ctx context.Context, now time.Time, keepDays int) error {
	cutoff := now.AddDate(0, 0, -keepDays).Format("2006-01-02")

	teacherIDs, err := s.store.DeleteExpiredDates(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired dates: %w", err)
	}

	if len(teacherIDs) == 0 {
		return nil
	}

	s.logger.Info("Expired availability pruned",
		zap.String("cutoff", cutoff),
		zap.Int("teachers", len(teacherIDs)),
	)

	for _, teacherID := range teacherIDs {
		s.notifyAvailability(ctx, teacherID, notify.EventAvailabilityUpdated, map[string]int64{"teacher_id": teacherID})
	}

	return nil
}

// notifyAvailability публикует событие в оба топика доступности учителя
func (s *AvailabilityService) notifyAvailability(ctx context.Context, teacherID int64, event string, payload any) {
	s.notifier.Publish(ctx, notify.TopicTeacherAvailability(teacherID), event, payload)
	s.notifier.Publish(ctx, notify.TopicAvailabilityForTeacher(teacherID), event, payload)
}

func validateRanges(ranges []model.TimeRange) error {
	if len(ranges) == 0 {
		return apperrors.Validation("time ranges must not be empty")
	}
	for _, tr := range ranges {
		if err := tr.Validate(); err != nil {
			return apperrors.Validation("invalid time range: %v", err)
		}
	}
	return nil
}

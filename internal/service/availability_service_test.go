package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lessonmarket/backend/internal/apperrors"
	"github.com/lessonmarket/backend/internal/model"
	"github.com/lessonmarket/backend/internal/notify"
)

func newAvailabilityFixture(t *testing.T) (*AvailabilityService, *BookingService, *notify.Recorder) {
	t.Helper()
	availStore := newMemAvailability()
	bookingStore := newMemBookings()
	rec := notify.NewRecorder()
	logger := zap.NewNop()

	availSvc := NewAvailabilityService(availStore, bookingStore, rec, logger)
	bookingSvc := NewBookingService(bookingStore, stubContacts{hasContact: true}, rec, logger)
	return availSvc, bookingSvc, rec
}

func TestDeclareRejectsEmptyRanges(t *testing.T) {
	svc, _, rec := newAvailabilityFixture(t)

	_, err := svc.Declare(context.Background(), teacherID, monday(t), nil)

	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Empty(t, rec.Events())
}

func TestDeclareRejectsInvalidRange(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(t)

	_, err := svc.Declare(context.Background(), teacherID, monday(t),
		[]model.TimeRange{{Start: "16:00", End: "14:00"}})

	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDeclareNotifiesBothTopics(t *testing.T) {
	svc, _, rec := newAvailabilityFixture(t)

	entry, err := svc.Declare(context.Background(), teacherID, monday(t),
		[]model.TimeRange{slot1416()})

	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, []string{
		"teacher-availability:100",
		"availability-for-teacher:100",
	}, rec.Topics())

	events := rec.Events()
	assert.Equal(t, notify.EventAvailabilityDeclared, events[0].Event)
}

func TestReplaceDiscardsPriorRanges(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(t)
	ctx := context.Background()

	entry, err := svc.Declare(ctx, teacherID, monday(t), []model.TimeRange{
		{Start: "10:00", End: "12:00"},
		{Start: "14:00", End: "16:00"},
	})
	require.NoError(t, err)

	// Замена целиком: прежние интервалы отбрасываются, не сливаются
	updated, err := svc.Replace(ctx, entry.ID, teacherID, nil,
		[]model.TimeRange{{Start: "09:00", End: "10:00"}})
	require.NoError(t, err)
	assert.Equal(t, []model.TimeRange{{Start: "09:00", End: "10:00"}}, updated.TimeRanges)

	entries, err := svc.ListByTeacher(ctx, teacherID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []model.TimeRange{{Start: "09:00", End: "10:00"}}, entries[0].TimeRanges)
}

func TestReplaceDayOnly(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(t)
	ctx := context.Background()

	entry, err := svc.Declare(ctx, teacherID, monday(t), []model.TimeRange{slot1416()})
	require.NoError(t, err)

	newDay, err := model.DateKey("2026-09-07")
	require.NoError(t, err)

	updated, err := svc.Replace(ctx, entry.ID, teacherID, &newDay, nil)
	require.NoError(t, err)
	assert.Equal(t, newDay, updated.Day)
	assert.Equal(t, []model.TimeRange{slot1416()}, updated.TimeRanges, "ranges untouched")
}

func TestReplaceErrors(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(t)
	ctx := context.Background()

	entry, err := svc.Declare(ctx, teacherID, monday(t), []model.TimeRange{slot1416()})
	require.NoError(t, err)

	_, err = svc.Replace(ctx, 9999, teacherID, nil, []model.TimeRange{slot1416()})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.Replace(ctx, entry.ID, teacherID+1, nil, []model.TimeRange{slot1416()})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	_, err = svc.Replace(ctx, entry.ID, teacherID, nil, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.Replace(ctx, entry.ID, teacherID, nil, []model.TimeRange{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestDeleteAvailability(t *testing.T) {
	svc, _, rec := newAvailabilityFixture(t)
	ctx := context.Background()

	entry, err := svc.Declare(ctx, teacherID, monday(t), []model.TimeRange{slot1416()})
	require.NoError(t, err)

	err = svc.Delete(ctx, entry.ID, teacherID+1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	rec.Reset()
	require.NoError(t, svc.Delete(ctx, entry.ID, teacherID))

	entries, err := svc.ListByTeacher(ctx, teacherID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []string{
		"teacher-availability:100",
		"availability-for-teacher:100",
	}, rec.Topics())

	err = svc.Delete(ctx, entry.ID, teacherID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestOpenSlotsSubtractsApprovedBooking(t *testing.T) {
	// Сквозной сценарий: объявление, заявка, одобрение, проекция
	availSvc, bookingSvc, _ := newAvailabilityFixture(t)
	ctx := context.Background()
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	_, err := availSvc.Declare(ctx, teacherID, monday(t), []model.TimeRange{
		{Start: "14:00", End: "16:00"},
		{Start: "16:00", End: "18:00"},
	})
	require.NoError(t, err)

	booking, _, err := bookingSvc.Create(ctx, studentX, teacherID, monday(t), slot1416())
	require.NoError(t, err)

	// До одобрения оба интервала открыты
	open, err := availSvc.OpenSlots(ctx, teacherID, asOf)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Len(t, open[0].TimeRanges, 2)

	_, err = bookingSvc.SetStatus(ctx, booking.ID, teacherID, model.BookingStatusApproved)
	require.NoError(t, err)

	// После одобрения занятый интервал исчез из проекции
	open, err = availSvc.OpenSlots(ctx, teacherID, asOf)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, []model.TimeRange{{Start: "16:00", End: "18:00"}}, open[0].TimeRanges)

	// Удаление approved-заявки возвращает слот
	require.NoError(t, bookingSvc.Delete(ctx, booking.ID, Actor{UserID: teacherID}))

	open, err = availSvc.OpenSlots(ctx, teacherID, asOf)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Len(t, open[0].TimeRanges, 2)
}

func TestPruneExpiredDates(t *testing.T) {
	svc, _, rec := newAvailabilityFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	oldDay, err := model.DateKey("2026-08-01")
	require.NoError(t, err)
	freshDay, err := model.DateKey("2026-08-28")
	require.NoError(t, err)

	_, err = svc.Declare(ctx, teacherID, oldDay, []model.TimeRange{slot1416()})
	require.NoError(t, err)
	_, err = svc.Declare(ctx, teacherID, freshDay, []model.TimeRange{slot1416()})
	require.NoError(t, err)
	_, err = svc.Declare(ctx, teacherID, monday(t), []model.TimeRange{slot1416()})
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, svc.PruneExpiredDates(ctx, now, 7))

	entries, err := svc.ListByTeacher(ctx, teacherID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, oldDay, e.Day)
	}

	// Одно событие на учителя в оба топика доступности
	assert.Equal(t, []string{
		"teacher-availability:100",
		"availability-for-teacher:100",
	}, rec.Topics())
}

func TestPruneNothingToDo(t *testing.T) {
	svc, _, rec := newAvailabilityFixture(t)

	require.NoError(t, svc.PruneExpiredDates(context.Background(), time.Now(), 7))
	assert.Empty(t, rec.Events())
}

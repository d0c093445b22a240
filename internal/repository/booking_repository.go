package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lessonmarket/backend/internal/model"
	"github.com/lessonmarket/backend/internal/repository/base"
	"github.com/lessonmarket/backend/internal/service"
)

const bookingColumns = "id, student_id, teacher_id, day_kind, day_value, start_time, end_time, status, created_at, updated_at"

// slotKeyWhere условие выборки по ключу слота; аргументы $1..$5
const slotKeyWhere = "teacher_id = $1 AND day_kind = $2 AND day_value = $3 AND start_time = $4 AND end_time = $5"

// BookingRepository postgres-журнал заявок. Реализует service.BookingStore;
// внутри InTx те же методы работают через pgx.Tx, так что
// проверка-каскад-запись одобрения выполняется атомарно.
type BookingRepository struct {
	pool *pgxpool.Pool
	db   base.Querier
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool, db: pool}
}

// InTx выполняет fn в одной транзакции
func (r *BookingRepository) InTx(ctx context.Context, fn func(tx service.BookingTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&bookingTx{BookingRepository{pool: r.pool, db: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID получает заявку по ID, nil если заявки нет
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByTeacher получает все заявки учителя, новые первыми
func (r *BookingRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE teacher_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, teacherID)
}

// ListByStudent получает все заявки студента, новые первыми
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, studentID)
}

// ListApprovedByTeacher получает approved-заявки учителя, для проектора
func (r *BookingRepository) ListApprovedByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE teacher_id = $1 AND status = 'approved'`
	return r.list(ctx, query, teacherID)
}

func (r *BookingRepository) list(ctx context.Context, query string, arg any) ([]*model.Booking, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// bookingTx транзакционная обёртка: удовлетворяет service.BookingTx
type bookingTx struct {
	BookingRepository
}

// Create создаёт новую заявку
func (r *bookingTx) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, teacher_id, day_kind, day_value, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.TeacherID,
		booking.Day.Kind,
		booking.Day.Value,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// LockSlot пинит все заявки ключа слота до конца транзакции.
// Два конкурентных одобрения одного ключа сериализуются здесь: второе
// увидит результат первого при перепроверке.
func (r *bookingTx) LockSlot(ctx context.Context, key model.SlotKey) error {
	query := `SELECT id FROM bookings WHERE ` + slotKeyWhere + ` FOR UPDATE`

	rows, err := r.db.Query(ctx, query, key.TeacherID, key.Day.Kind, key.Day.Value, key.Start, key.End)
	if err != nil {
		return fmt.Errorf("lock slot rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
	}
	return rows.Err()
}

// ApprovedBySlot ищет approved-заявку по ключу слота, исключая excludeID
func (r *bookingTx) ApprovedBySlot(ctx context.Context, key model.SlotKey, excludeID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + slotKeyWhere + ` AND status = 'approved' AND id <> $6
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, key.TeacherID, key.Day.Kind, key.Day.Value, key.Start, key.End, excludeID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get approved booking by slot: %w", err)
	}

	return booking, nil
}

// StudentActiveBySlot ищет pending/approved заявку студента на ключ слота
func (r *bookingTx) StudentActiveBySlot(ctx context.Context, studentID int64, key model.SlotKey) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + slotKeyWhere + ` AND student_id = $6 AND status IN ('pending', 'approved')
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, key.TeacherID, key.Day.Kind, key.Day.Value, key.Start, key.End, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student booking by slot: %w", err)
	}

	return booking, nil
}

// CountOtherPending считает pending-заявки других студентов на ключ слота
func (r *bookingTx) CountOtherPending(ctx context.Context, key model.SlotKey, excludeStudentID int64) (int, error) {
	query := `
		SELECT count(*)
		FROM bookings
		WHERE ` + slotKeyWhere + ` AND status = 'pending' AND student_id <> $6
	`

	var count int
	err := r.db.QueryRow(ctx, query, key.TeacherID, key.Day.Kind, key.Day.Value, key.Start, key.End, excludeStudentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending bookings by slot: %w", err)
	}

	return count, nil
}

// RejectOtherPending каскадно отклоняет все pending-заявки ключа слота кроме keepID
func (r *bookingTx) RejectOtherPending(ctx context.Context, key model.SlotKey, keepID int64) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'rejected', updated_at = now()
		WHERE ` + slotKeyWhere + ` AND status = 'pending' AND id <> $6
	`

	result, err := r.db.Exec(ctx, query, key.TeacherID, key.Day.Kind, key.Day.Value, key.Start, key.End, keepID)
	if err != nil {
		return 0, fmt.Errorf("reject competing bookings: %w", err)
	}

	return result.RowsAffected(), nil
}

// UpdateStatus обновляет статус заявки
func (r *bookingTx) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`

	result, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// Delete безвозвратно удаляет заявку
func (r *bookingTx) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	var kind, value string

	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TeacherID,
		&kind,
		&value,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Day = model.DayKey{Kind: model.DayKind(kind), Value: value}
	return &booking, nil
}

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

// AvailabilityRepository postgres-хранилище записей доступности.
// Реализует service.AvailabilityStore; внутри InTx те же методы работают
// через pgx.Tx.
type AvailabilityRepository struct {
	pool *pgxpool.Pool
	db   base.Querier
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool, db: pool}
}

func (r *AvailabilityRepository) withTx(tx pgx.Tx) *availabilityTx {
	return &availabilityTx{AvailabilityRepository{pool: r.pool, db: tx}}
}

// InTx выполняет fn в одной транзакции
func (r *AvailabilityRepository) InTx(ctx context.Context, fn func(tx service.AvailabilityTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(r.withTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID получает запись по ID, nil если записи нет
func (r *AvailabilityRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error) {
	return r.getByID(ctx, id, false)
}

func (r *AvailabilityRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*model.AvailabilityEntry, error) {
	query := `
		SELECT id, teacher_id, day_kind, day_value, time_ranges, created_at, updated_at
		FROM availability_entries
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	entry, err := scanAvailability(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability entry by id: %w", err)
	}

	return entry, nil
}

// ListByTeacher получает все записи учителя, включая прошедшие даты
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.AvailabilityEntry, error) {
	query := `
		SELECT id, teacher_id, day_kind, day_value, time_ranges, created_at, updated_at
		FROM availability_entries
		WHERE teacher_id = $1
		ORDER BY day_kind, day_value
	`

	rows, err := r.db.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list availability by teacher: %w", err)
	}
	defer rows.Close()

	var entries []*model.AvailabilityEntry
	for rows.Next() {
		entry, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteExpiredDates удаляет записи на конкретные даты раньше cutoff,
// возвращает ID затронутых учителей без повторов
func (r *AvailabilityRepository) DeleteExpiredDates(ctx context.Context, cutoff string) ([]int64, error) {
	query := `
		DELETE FROM availability_entries
		WHERE day_kind = 'date' AND day_value < $1
		RETURNING teacher_id
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired availability: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	var teacherIDs []int64
	for rows.Next() {
		var teacherID int64
		if err := rows.Scan(&teacherID); err != nil {
			return nil, fmt.Errorf("scan teacher id: %w", err)
		}
		if !seen[teacherID] {
			seen[teacherID] = true
			teacherIDs = append(teacherIDs, teacherID)
		}
	}

	return teacherIDs, rows.Err()
}

// availabilityTx транзакционная обёртка: удовлетворяет service.AvailabilityTx
type availabilityTx struct {
	AvailabilityRepository
}

// Create создаёт новую запись доступности
func (r *availabilityTx) Create(ctx context.Context, entry *model.AvailabilityEntry) error {
	query := `
		INSERT INTO availability_entries (teacher_id, day_kind, day_value, time_ranges)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		entry.TeacherID,
		entry.Day.Kind,
		entry.Day.Value,
		entry.TimeRanges,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability entry: %w", err)
	}

	return nil
}

// GetByID в транзакции берёт блокировку строки
func (r *availabilityTx) GetByID(ctx context.Context, id int64) (*model.AvailabilityEntry, error) {
	return r.getByID(ctx, id, true)
}

// Update целиком перезаписывает день и интервалы записи
func (r *availabilityTx) Update(ctx context.Context, entry *model.AvailabilityEntry) error {
	query := `
		UPDATE availability_entries
		SET day_kind = $1, day_value = $2, time_ranges = $3, updated_at = now()
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, entry.Day.Kind, entry.Day.Value, entry.TimeRanges, entry.ID)
	if err != nil {
		return fmt.Errorf("update availability entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("availability entry not found")
	}

	return nil
}

// Delete безвозвратно удаляет запись
func (r *availabilityTx) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM availability_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("availability entry not found")
	}

	return nil
}

func scanAvailability(row pgx.Row) (*model.AvailabilityEntry, error) {
	var entry model.AvailabilityEntry
	var kind, value string

	err := row.Scan(
		&entry.ID,
		&entry.TeacherID,
		&kind,
		&value,
		&entry.TimeRanges,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Day = model.DayKey{Kind: model.DayKind(kind), Value: value}
	return &entry, nil
}

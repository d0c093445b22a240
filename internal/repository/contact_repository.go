package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRepository проверка истории переписки. Таблица messages
// принадлежит внешней подсистеме сообщений, ядро только читает факт
// наличия контакта.
type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// HasPriorContact сообщает, переписывались ли студент и учитель
func (r *ContactRepository) HasPriorContact(ctx context.Context, studentID, teacherID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, studentID, teacherID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check prior contact: %w", err)
	}

	return exists, nil
}

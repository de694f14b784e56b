package emaillogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-saas/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one delivery attempt.
func (r *Repository) Record(ctx context.Context, recipient, template, status, errMsg string) error {
	const q = `INSERT INTO email_logs (recipient, template, status, error_message)
		VALUES ($1, $2, $3, NULLIF($4, ''))`
	_, err := r.pool.Exec(ctx, q, recipient, template, status, errMsg)
	return err
}

// ListRecent returns delivery attempts, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit, offset int) ([]*models.EmailLog, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, recipient, template, status, COALESCE(error_message, ''), created_at
		FROM email_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.Recipient, &el.Template, &el.Status, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &el)
	}
	return list, total, rows.Err()
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func scanContactMessage(row pgx.Row) (ContactMessage, error) {
	var i ContactMessage
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Subject,
		&i.Message,
		&i.IsRead,
		&i.CreatedAt,
	)
	return i, err
}

const createContactMessage = `-- name: CreateContactMessage :one
INSERT INTO contact_messages (name, email, subject, message)
VALUES ($1, $2, $3, $4)
RETURNING id, name, email, subject, message, is_read, created_at`

type CreateContactMessageParams struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	return scanContactMessage(q.db.QueryRow(ctx, createContactMessage,
		arg.Name, arg.Email, arg.Subject, arg.Message))
}

const listContactMessages = `-- name: ListContactMessages :many
SELECT id, name, email, subject, message, is_read, created_at
FROM contact_messages
ORDER BY created_at DESC`

func (q *Queries) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	rows, err := q.db.Query(ctx, listContactMessages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ContactMessage{}
	for rows.Next() {
		i, err := scanContactMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markContactMessageRead = `-- name: MarkContactMessageRead :one
UPDATE contact_messages SET is_read = true WHERE id = $1
RETURNING id, name, email, subject, message, is_read, created_at`

func (q *Queries) MarkContactMessageRead(ctx context.Context, id uuid.UUID) (ContactMessage, error) {
	return scanContactMessage(q.db.QueryRow(ctx, markContactMessageRead, id))
}

const deleteContactMessage = `-- name: DeleteContactMessage :execrows
DELETE FROM contact_messages WHERE id = $1`

func (q *Queries) DeleteContactMessage(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteContactMessage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-agent/internal/domain"
)

// TicketPatch carries the fields of a partial update; nil means unchanged.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, limit int) ([]domain.Ticket, error)
	UpdatePartial(ctx context.Context, id int64, patch TicketPatch) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description)
        VALUES ($1,$2)
        RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
	).Scan(&ticket.ID, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, limit int) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, created_at, updated_at
        FROM tickets ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// UpdatePartial applies only the supplied fields and always refreshes
// updated_at, even when no visible field changed.
func (r *ticketRepository) UpdatePartial(ctx context.Context, id int64, patch TicketPatch) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET
            title=COALESCE($1, title),
            description=COALESCE($2, description),
            status=COALESCE($3, status),
            updated_at=NOW()
        WHERE id=$4
        RETURNING id, title, description, status, created_at, updated_at`

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query,
		patch.Title,
		patch.Description,
		status,
		id,
	).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

const ticketColumns = `id, sln, title, customer_name, product_id, status, priority,
               created_by, created_role, company_id,
               upstream_company_id, sales_owner_id, assigned_to_company_id, assigned_to_user_id,
               description, service_types, messages, logs, version, created_at, updated_at`

type ticketRepository struct {
	db       querier
	lockRows bool
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	messages, logs, err := encodeHistory(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`
	_, err = r.db.Exec(ctx, query,
		ticket.ID,
		ticket.SLN,
		ticket.Title,
		ticket.CustomerName,
		ticket.ProductID,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.CreatedRole,
		ticket.CompanyID,
		ticket.UpstreamCompanyID,
		ticket.SalesOwnerID,
		ticket.AssignedToCompanyID,
		ticket.AssignedToUserID,
		ticket.Description,
		serviceTypesOrEmpty(ticket.ServiceTypes),
		messages,
		logs,
		ticket.Version,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return mapError(err)
}

// Update writes every mutable column. Provenance columns are never touched.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	messages, logs, err := encodeHistory(ticket)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET sln=$1, title=$2, customer_name=$3, product_id=$4, status=$5, priority=$6,
            upstream_company_id=$7, sales_owner_id=$8, assigned_to_company_id=$9, assigned_to_user_id=$10,
            description=$11, service_types=$12, messages=$13, logs=$14, version=$15, updated_at=$16
        WHERE id=$17 AND version=$18`
	cmd, err := r.db.Exec(ctx, query,
		ticket.SLN,
		ticket.Title,
		ticket.CustomerName,
		ticket.ProductID,
		ticket.Status,
		ticket.Priority,
		ticket.UpstreamCompanyID,
		ticket.SalesOwnerID,
		ticket.AssignedToCompanyID,
		ticket.AssignedToUserID,
		ticket.Description,
		serviceTypesOrEmpty(ticket.ServiceTypes),
		messages,
		logs,
		ticket.Version,
		ticket.UpdatedAt,
		ticket.ID,
		expectedVersion,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	return affectedOne(cmd)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1` + r.lockClause()
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC, id`
	return r.query(ctx, query)
}

func (r *ticketRepository) ListOpenByAssignedCompany(ctx context.Context, companyID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE assigned_to_company_id=$1 AND status <> $2
        ORDER BY created_at DESC, id` + r.lockClause()
	return r.query(ctx, query, companyID, domain.TicketStatusClosed)
}

func (r *ticketRepository) lockClause() string {
	if r.lockRows {
		return " FOR UPDATE"
	}
	return ""
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		messages []byte
		logs     []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.SLN,
		&ticket.Title,
		&ticket.CustomerName,
		&ticket.ProductID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.CreatedRole,
		&ticket.CompanyID,
		&ticket.UpstreamCompanyID,
		&ticket.SalesOwnerID,
		&ticket.AssignedToCompanyID,
		&ticket.AssignedToUserID,
		&ticket.Description,
		&ticket.ServiceTypes,
		&messages,
		&logs,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &ticket.Messages); err != nil {
		return nil, fmt.Errorf("decode messages of ticket %s: %w", ticket.ID, err)
	}
	if err := json.Unmarshal(logs, &ticket.Logs); err != nil {
		return nil, fmt.Errorf("decode logs of ticket %s: %w", ticket.ID, err)
	}
	return &ticket, nil
}

func encodeHistory(ticket *domain.Ticket) (messages, logs []byte, err error) {
	if ticket == nil {
		return nil, nil, errors.New("nil ticket")
	}
	msgs := ticket.Messages
	if msgs == nil {
		msgs = []domain.TicketMessage{}
	}
	entries := ticket.Logs
	if entries == nil {
		entries = []domain.TicketLog{}
	}
	if messages, err = json.Marshal(msgs); err != nil {
		return nil, nil, fmt.Errorf("encode messages: %w", err)
	}
	if logs, err = json.Marshal(entries); err != nil {
		return nil, nil, fmt.Errorf("encode logs: %w", err)
	}
	return messages, logs, nil
}

func serviceTypesOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

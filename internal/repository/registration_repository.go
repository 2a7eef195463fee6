package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

const registrationColumns = `id, company_name, contact_person, email, phone, request_date, status, type,
               decided_by, decided_at, company_id, admin_user_id`

type registrationRepository struct {
	db       querier
	lockRows bool
}

func (r *registrationRepository) Create(ctx context.Context, req *domain.RegistrationRequest) error {
	const query = `
        INSERT INTO registration_requests (` + registrationColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.CompanyName,
		req.ContactPerson,
		req.Email,
		req.Phone,
		req.RequestDate,
		req.Status,
		req.Type,
		req.DecidedBy,
		req.DecidedAt,
		req.CompanyID,
		req.AdminUserID,
	)
	return mapError(err)
}

func (r *registrationRepository) Update(ctx context.Context, req *domain.RegistrationRequest) error {
	const query = `
        UPDATE registration_requests
        SET status=$1, decided_by=$2, decided_at=$3, company_id=$4, admin_user_id=$5
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		req.Status,
		req.DecidedBy,
		req.DecidedAt,
		req.CompanyID,
		req.AdminUserID,
		req.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return affectedOne(cmd)
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_requests WHERE id=$1`
	if r.lockRows {
		query += ` FOR UPDATE`
	}
	req, err := scanRegistration(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *registrationRepository) List(ctx context.Context, status domain.RegistrationStatus) ([]domain.RegistrationRequest, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_requests
        WHERE ($1 = '' OR status = $1)
        ORDER BY request_date DESC, id`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.RegistrationRequest{}
	for rows.Next() {
		req, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func scanRegistration(row pgx.Row) (*domain.RegistrationRequest, error) {
	var req domain.RegistrationRequest
	if err := row.Scan(
		&req.ID,
		&req.CompanyName,
		&req.ContactPerson,
		&req.Email,
		&req.Phone,
		&req.RequestDate,
		&req.Status,
		&req.Type,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.CompanyID,
		&req.AdminUserID,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

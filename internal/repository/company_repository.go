package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

const companyColumns = `id, name, address, phone, service_area, created_at, updated_at`

type companyRepository struct {
	db querier
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `INSERT INTO companies (` + companyColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Exec(ctx, query,
		company.ID,
		company.Name,
		company.Address,
		company.Phone,
		company.ServiceArea,
		company.CreatedAt,
		company.UpdatedAt,
	)
	return mapError(err)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET name=$1, address=$2, phone=$3, service_area=$4, updated_at=$5
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		company.Name,
		company.Address,
		company.Phone,
		company.ServiceArea,
		company.UpdatedAt,
		company.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return affectedOne(cmd)
}

func (r *companyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	return affectedOne(cmd)
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	company, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return company, nil
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.Company{}
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *company)
	}
	return result, rows.Err()
}

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var company domain.Company
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.Address,
		&company.Phone,
		&company.ServiceArea,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}

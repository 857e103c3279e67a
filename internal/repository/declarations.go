package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

const declarationColumns = `id, application_id, success, reason, created_at`

func scanDeclaration(row *sql.Row) (*models.Declaration, error) {
	var d models.Declaration
	var success sql.NullBool
	var reason sql.NullString
	err := row.Scan(&d.ID, &d.ApplicationID, &success, &reason, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if success.Valid {
		d.Success = &success.Bool
	}
	d.Reason = reason.String
	return &d, nil
}

func (s *Store) GetDeclaration(ctx context.Context, id string) (*models.Declaration, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE id = $1`, id)
	d, err := scanDeclaration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("declaration", id)
	}
	return d, err
}

func (s *Store) GetDeclarationByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Declaration, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE application_id = $1`, applicationID)
	d, err := scanDeclaration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("declaration", applicationID.String())
	}
	return d, err
}

func (s *Store) CreateDeclaration(ctx context.Context, d *models.Declaration) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO declarations (id, application_id, success, reason, created_at)
		VALUES ($1, $2, NULL, '', $3)`,
		d.ID, d.ApplicationID, d.CreatedAt)
	return err
}

func (s *Store) DeleteDeclaration(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM declarations WHERE id = $1`, id)
	return err
}

func (s *Store) ResolveDeclaration(ctx context.Context, id string, success bool, reason string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE declarations SET success = $2, reason = $3 WHERE id = $1`,
		id, success, reason)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerr.NewNotFound("declaration", id)
	}
	return nil
}

func (s *Store) ListUnresolvedDeclarations(ctx context.Context) ([]models.Declaration, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE success IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Declaration
	for rows.Next() {
		var d models.Declaration
		var success sql.NullBool
		var reason sql.NullString
		if err := rows.Scan(&d.ID, &d.ApplicationID, &success, &reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		if success.Valid {
			d.Success = &success.Bool
		}
		d.Reason = reason.String
		out = append(out, d)
	}
	return out, rows.Err()
}

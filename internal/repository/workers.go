package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

func (s *Store) GetWorkerProfile(ctx context.Context, workerID uuid.UUID) (*models.WorkerProfile, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, address, iban,
		       national_number, employment_type
		FROM worker_profiles WHERE id = $1`, workerID)

	var p models.WorkerProfile
	var phone, address, iban, niss sql.NullString
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &phone,
		&address, &iban, &niss, &p.EmploymentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("worker", workerID.String())
	}
	if err != nil {
		return nil, err
	}
	p.Phone = phone.String
	p.Address = address.String
	p.IBAN = iban.String
	p.NationalNumber = niss.String
	return &p, nil
}

func (s *Store) GetWorkerContact(ctx context.Context, workerID uuid.UUID) (*models.WorkerContact, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT p.email, COALESCE(d.device_token, '')
		FROM worker_profiles p
		LEFT JOIN worker_devices d ON d.worker_id = p.id AND d.active
		WHERE p.id = $1
		LIMIT 1`, workerID)

	var c models.WorkerContact
	err := row.Scan(&c.Email, &c.DeviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.NewNotFound("worker", workerID.String())
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

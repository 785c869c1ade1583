package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/repositories"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// undefinedTable is the postgres error code for a missing relation
const undefinedTable pq.ErrorCode = "42P01"

var doctorColumns = []interface{}{
	"id", "name", "specialization", "avg_consultation_minutes", "daily_capacity", "availability",
}

var _ repositories.DoctorRosterRepository = (*DoctorRosterAdapter)(nil)

// DoctorRosterAdapter reads the clinic roster from the doctors table
type DoctorRosterAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorRosterAdapter creates a new roster adapter
func NewDoctorRosterAdapter(client *postgres.Client) *DoctorRosterAdapter {
	return &DoctorRosterAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListDoctors returns every active doctor ordered by id
func (a *DoctorRosterAdapter) ListDoctors(ctx context.Context) ([]*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"is_active": true}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQueryError("failed to list doctors", err)
	}
	defer rows.Close()

	var doctors []*entities.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctors", err)
	}

	return doctors, nil
}

// GetDoctor retrieves one active doctor
func (a *DoctorRosterAdapter) GetDoctor(ctx context.Context, id string) (*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"id": id, "is_active": true}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor, err := scanDoctor(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	if err != nil {
		return nil, wrapQueryError("failed to get doctor", err)
	}
	return doctor, nil
}

// SaveDoctors inserts or refreshes roster rows, reactivating any that were retired
func (a *DoctorRosterAdapter) SaveDoctors(ctx context.Context, doctors []*entities.Doctor) error {
	if len(doctors) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(doctors))
	for _, d := range doctors {
		if err := d.Validate(); err != nil {
			return err
		}
		availability, err := json.Marshal(d.Availability)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to encode availability for %s", d.ID), err)
		}
		rows = append(rows, goqu.Record{
			"id":                       d.ID,
			"name":                     d.Name,
			"specialization":           string(d.Specialization),
			"avg_consultation_minutes": d.AvgConsultationMinutes,
			"daily_capacity":           d.DailyCapacity,
			"availability":             string(availability),
			"is_active":                true,
		})
	}

	query, args, err := a.db.Insert("doctors").
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":                     goqu.L("EXCLUDED.name"),
			"specialization":           goqu.L("EXCLUDED.specialization"),
			"avg_consultation_minutes": goqu.L("EXCLUDED.avg_consultation_minutes"),
			"daily_capacity":           goqu.L("EXCLUDED.daily_capacity"),
			"availability":             goqu.L("EXCLUDED.availability"),
			"is_active":                true,
			"updated_at":               goqu.L("NOW()"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return wrapQueryError("failed to save doctors", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDoctor(row rowScanner) (*entities.Doctor, error) {
	doctor := &entities.Doctor{}
	var (
		name         sql.NullString
		availability []byte
	)

	err := row.Scan(
		&doctor.ID,
		&name,
		&doctor.Specialization,
		&doctor.AvgConsultationMinutes,
		&doctor.DailyCapacity,
		&availability,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, wrapQueryError("failed to scan doctor", err)
	}

	doctor.Name = name.String
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &doctor.Availability); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("doctor %s has malformed availability", doctor.ID), err)
		}
	}

	return doctor, nil
}

func wrapQueryError(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return apperrors.NewInternalError(msg+": doctors table is missing, apply migrations", err)
	}
	return apperrors.NewInternalError(msg, err)
}

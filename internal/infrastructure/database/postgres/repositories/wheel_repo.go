package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

type postgresWheelRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresWheelRepo returns a wheel.Repository backed by PostgreSQL.
// Wheel data is stored as a JSONB snapshot of the aggregation output.
func NewPostgresWheelRepo(conn *postgres.Connection, log logging.Logger) wheel.Repository {
	return &postgresWheelRepo{
		conn: conn,
		log:  log,
	}
}

func (r *postgresWheelRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresWheelRepo) Save(ctx context.Context, rec *wheel.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal wheel data")
	}

	query := `
		INSERT INTO wheels (id, wheel_type, scope_type, scope_key, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING generated_at
	`
	err = r.executor().QueryRowContext(ctx, query,
		rec.ID, rec.WheelType, rec.ScopeType, rec.ScopeKey, data,
	).Scan(&rec.GeneratedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save wheel")
	}
	return nil
}

func (r *postgresWheelRepo) GetByID(ctx context.Context, id uuid.UUID) (*wheel.Record, error) {
	query := `
		SELECT id, wheel_type, scope_type, scope_key, data, generated_at
		FROM wheels WHERE id = $1
	`
	row := r.executor().QueryRowContext(ctx, query, id)
	rec, err := scanWheel(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeWheelNotFound,
			fmt.Sprintf("wheel %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load wheel")
	}
	return rec, nil
}

func (r *postgresWheelRepo) GetLatest(ctx context.Context, wheelType wheel.WheelType, scopeKey string) (*wheel.Record, error) {
	query := `
		SELECT id, wheel_type, scope_type, scope_key, data, generated_at
		FROM wheels
		WHERE wheel_type = $1 AND scope_key = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`
	row := r.executor().QueryRowContext(ctx, query, wheelType, scopeKey)
	rec, err := scanWheel(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeWheelNotFound,
			fmt.Sprintf("no wheel generated for %s/%s", wheelType, scopeKey))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load latest wheel")
	}
	return rec, nil
}

func scanWheel(s scanner) (*wheel.Record, error) {
	var (
		rec  wheel.Record
		data []byte
	)
	err := s.Scan(&rec.ID, &rec.WheelType, &rec.ScopeType, &rec.ScopeKey, &data, &rec.GeneratedAt)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/domain/tasting"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

type postgresTastingRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresTastingRepo returns a tasting.Repository backed by PostgreSQL.
func NewPostgresTastingRepo(conn *postgres.Connection, log logging.Logger) tasting.Repository {
	return &postgresTastingRepo{
		conn: conn,
		log:  log,
	}
}

func (r *postgresTastingRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresTastingRepo) Create(ctx context.Context, t *tasting.Tasting) error {
	query := `
		INSERT INTO tastings (
			id, user_id, item_name, type, notes, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING created_at, updated_at
	`
	meta, _ := json.Marshal(t.Metadata)
	err := r.executor().QueryRowContext(ctx, query,
		t.ID, t.UserID, t.ItemName, t.Type, t.Notes, meta,
	).Scan(&t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create tasting")
	}
	return nil
}

func (r *postgresTastingRepo) GetByID(ctx context.Context, id uuid.UUID) (*tasting.Tasting, error) {
	query := `
		SELECT id, user_id, item_name, type, notes, metadata, created_at, updated_at
		FROM tastings WHERE id = $1
	`
	row := r.executor().QueryRowContext(ctx, query, id)
	t, err := scanTasting(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeTastingNotFound,
			fmt.Sprintf("tasting %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load tasting")
	}
	return t, nil
}

func (r *postgresTastingRepo) List(ctx context.Context, filter tasting.ListFilter) ([]*tasting.Tasting, int64, error) {
	baseQuery := `FROM tastings WHERE user_id = $1`
	args := []interface{}{filter.UserID}

	if filter.Type != "" {
		baseQuery += ` AND type = $2`
		args = append(args, filter.Type)
	}

	var total int64
	err := r.executor().QueryRowContext(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count tastings")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	dataQuery := fmt.Sprintf(
		"SELECT id, user_id, item_name, type, notes, metadata, created_at, updated_at %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		baseQuery, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.executor().QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list tastings")
	}
	defer rows.Close()

	var tastings []*tasting.Tasting
	for rows.Next() {
		t, err := scanTasting(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan tasting")
		}
		tastings = append(tastings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate tastings")
	}
	return tastings, total, nil
}

func (r *postgresTastingRepo) Update(ctx context.Context, t *tasting.Tasting) error {
	query := `
		UPDATE tastings
		SET item_name = $1, type = $2, notes = $3, metadata = $4, updated_at = NOW()
		WHERE id = $5 AND updated_at = $6
	`
	meta, _ := json.Marshal(t.Metadata)
	res, err := r.executor().ExecContext(ctx, query,
		t.ItemName, t.Type, t.Notes, meta, t.ID, t.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update tasting")
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return errors.New(errors.ErrCodeTastingConflict,
			"tasting updated by another transaction or not found")
	}
	return nil
}

func (r *postgresTastingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tastings WHERE id = $1`
	res, err := r.executor().ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete tasting")
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return errors.New(errors.ErrCodeTastingNotFound,
			fmt.Sprintf("tasting %s not found", id))
	}
	return nil
}

func scanTasting(s scanner) (*tasting.Tasting, error) {
	var (
		t    tasting.Tasting
		meta []byte
	)
	err := s.Scan(&t.ID, &t.UserID, &t.ItemName, &t.Type, &t.Notes, &meta, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

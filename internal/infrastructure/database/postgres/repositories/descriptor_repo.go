package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/domain/descriptor"
	"github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

type postgresDescriptorRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresDescriptorRepo returns a descriptor.Repository backed by PostgreSQL.
func NewPostgresDescriptorRepo(conn *postgres.Connection, log logging.Logger) descriptor.Repository {
	return &postgresDescriptorRepo{
		conn: conn,
		log:  log,
	}
}

func (r *postgresDescriptorRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

const descriptorColumns = `id, tasting_id, user_id, item_name, text, type, category, subcategory, confidence, intensity, source, created_at`

func (r *postgresDescriptorRepo) InsertBatch(ctx context.Context, records []*descriptor.Record) error {
	if len(records) == 0 {
		return nil
	}

	// One multi-row INSERT keeps the extraction pipeline to a single round trip.
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO descriptors (id, tasting_id, user_id, item_name, text, type, category, subcategory, confidence, intensity, source) VALUES `)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 11
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11))
		args = append(args,
			rec.ID, rec.TastingID, rec.UserID, rec.ItemName,
			rec.Text, rec.Type, rec.Category, rec.Subcategory,
			rec.Confidence, rec.Intensity, rec.Source,
		)
	}

	if _, err := r.executor().ExecContext(ctx, sb.String(), args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert descriptor batch")
	}
	return nil
}

func (r *postgresDescriptorRepo) ListByScope(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	baseQuery := `FROM descriptors`
	var args []interface{}

	switch scope.Type {
	case wheel.ScopePersonal:
		baseQuery += ` WHERE user_id = $1`
		args = append(args, scope.UserID)
	case wheel.ScopeItem:
		baseQuery += ` WHERE item_name = $1`
		args = append(args, scope.ItemName)
	case wheel.ScopeCategory:
		baseQuery += ` WHERE category = $1`
		args = append(args, scope.Category)
	case wheel.ScopeTasting:
		baseQuery += ` WHERE tasting_id = $1`
		args = append(args, scope.TastingID)
	case wheel.ScopeUniversal:
		// No filter: the universal wheel aggregates every row.
	}

	// Ascending creation order keeps aggregation tiebreaks reproducible.
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC, id ASC", descriptorColumns, baseQuery)

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list descriptors")
	}
	defer rows.Close()

	var records []*descriptor.Record
	for rows.Next() {
		rec, err := scanDescriptor(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan descriptor")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate descriptors")
	}
	return records, nil
}

func (r *postgresDescriptorRepo) DeleteByTasting(ctx context.Context, tastingID uuid.UUID) (int64, error) {
	query := `DELETE FROM descriptors WHERE tasting_id = $1`
	res, err := r.executor().ExecContext(ctx, query, tastingID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete descriptors")
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

func scanDescriptor(s scanner) (*descriptor.Record, error) {
	var rec descriptor.Record
	err := s.Scan(
		&rec.ID, &rec.TastingID, &rec.UserID, &rec.ItemName,
		&rec.Text, &rec.Type, &rec.Category, &rec.Subcategory,
		&rec.Confidence, &rec.Intensity, &rec.Source, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

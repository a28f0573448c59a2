package minio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

// ExportStore persists rendered wheel SVGs and produces shareable links.
type ExportStore interface {
	// PutSVG stores the rendered SVG for a wheel and returns its object key.
	PutSVG(ctx context.Context, wheelID uuid.UUID, svg []byte) (string, error)

	// ShareLink returns a presigned GET URL for a stored export.
	ShareLink(ctx context.Context, objectKey string) (string, time.Time, error)

	// Delete removes a stored export.
	Delete(ctx context.Context, objectKey string) error
}

type minioExportStore struct {
	client *Client
	logger logging.Logger
}

// NewExportStore builds an ExportStore on top of client.
func NewExportStore(client *Client, log logging.Logger) ExportStore {
	return &minioExportStore{
		client: client,
		logger: log,
	}
}

func objectKey(wheelID uuid.UUID) string {
	return fmt.Sprintf("wheels/%s.svg", wheelID)
}

func (s *minioExportStore) PutSVG(ctx context.Context, wheelID uuid.UUID, svg []byte) (string, error) {
	if len(svg) == 0 {
		return "", errors.New(errors.ErrCodeWheelExportFailed, "empty svg document")
	}

	key := objectKey(wheelID)
	_, err := s.client.API().PutObject(ctx, s.client.Bucket(), key,
		bytes.NewReader(svg), int64(len(svg)),
		minio.PutObjectOptions{ContentType: "image/svg+xml"},
	)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeWheelExportFailed, "failed to store svg export")
	}

	s.logger.Debug("Stored wheel export",
		logging.String("object", key),
		logging.Int("bytes", len(svg)))
	return key, nil
}

func (s *minioExportStore) ShareLink(ctx context.Context, objectKey string) (string, time.Time, error) {
	expiry := s.client.PresignExpiry()
	u, err := s.client.API().PresignedGetObject(ctx, s.client.Bucket(), objectKey, expiry, nil)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.ErrCodeWheelExportFailed,
			"failed to presign export url")
	}
	return u.String(), time.Now().Add(expiry), nil
}

func (s *minioExportStore) Delete(ctx context.Context, objectKey string) error {
	err := s.client.API().RemoveObject(ctx, s.client.Bucket(), objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete export")
	}
	return nil
}

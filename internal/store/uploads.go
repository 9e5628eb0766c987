package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"energypassport/internal/model"
)

const uploadColumns = `id, batch_id, enterprise_id, filename, file_path, status, resource_tag, error_message, created_at`

// CreateUpload inserts a processing upload and returns it with id and timestamp
func (s *Store) CreateUpload(ctx context.Context, u model.Upload) (model.Upload, error) {
	if u.Status == "" {
		u.Status = model.UploadProcessing
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (batch_id, enterprise_id, filename, file_path, status, resource_tag)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.BatchID, u.EnterpriseID, u.Filename, u.FilePath, u.Status, string(u.ResourceTag))
	if err != nil {
		return model.Upload{}, fmt.Errorf("failed to create upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Upload{}, fmt.Errorf("failed to get upload id: %w", err)
	}
	return s.GetUpload(ctx, id)
}

// UpdateUploadStatus sets status and error message
func (s *Store) UpdateUploadStatus(ctx context.Context, id int64, status, errorMessage string) error {
	return s.updateUpload(ctx, `
		UPDATE uploads SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errorMessage, id)
}

// SetUploadTag records the classified resource tag
func (s *Store) SetUploadTag(ctx context.Context, id int64, tag model.ResourceTag) error {
	return s.updateUpload(ctx, `
		UPDATE uploads SET resource_tag = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(tag), id)
}

func (s *Store) updateUpload(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("upload %v: %w", args[len(args)-1], ErrNotFound)
	}
	return nil
}

// GetUpload ErrNotFound when absent
func (s *Store) GetUpload(ctx context.Context, id int64) (model.Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Upload{}, fmt.Errorf("upload %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Upload{}, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

// ListUploads all uploads of an enterprise in creation order
func (s *Store) ListUploads(ctx context.Context, enterpriseID int64) ([]model.Upload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+uploadColumns+` FROM uploads
		WHERE enterprise_id = ?
		ORDER BY created_at, id
	`, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var out []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(sc scanner) (model.Upload, error) {
	var u model.Upload
	var tag string
	err := sc.Scan(&u.ID, &u.BatchID, &u.EnterpriseID, &u.Filename, &u.FilePath,
		&u.Status, &tag, &u.ErrorMessage, &u.CreatedAt)
	u.ResourceTag = model.ResourceTag(tag)
	return u, err
}

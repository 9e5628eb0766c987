package store

import (
	"context"
	"fmt"
	"strings"

	"energypassport/internal/model"
)

// ImportLog one pipeline run as recorded in import_logs
type ImportLog struct {
	ID            int64
	UploadID      int64
	Filename      string
	Status        string
	Resources     []string
	QuarterCount  int
	NodeRecords   int
	MissingSheets []string
	ErrorMessage  string
}

// CreateImportLog returns the import_log id
func (s *Store) CreateImportLog(ctx context.Context, uploadID int64, filename, filePath string, fileSize int64, fileHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (upload_id, filename, file_path, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, ?, 'processing')
	`, uploadID, filename, filePath, fileSize, fileHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// FinishImportLog stores the outcome of a run
func (s *Store) FinishImportLog(ctx context.Context, id int64, report model.IngestReport, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			status = ?,
			resources = ?,
			quarter_count = ?,
			node_records = ?,
			missing_sheets = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, report.Status, strings.Join(report.Resources, ","), report.QuarterCount, report.NodeRecords,
		strings.Join(report.MissingSheets, "|"), errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs runs of one upload, newest first
func (s *Store) ListImportLogs(ctx context.Context, uploadID int64) ([]ImportLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upload_id, filename, status, resources, quarter_count, node_records, missing_sheets, error_message
		FROM import_logs WHERE upload_id = ? ORDER BY id DESC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	var out []ImportLog
	for rows.Next() {
		var l ImportLog
		var resources, missing string
		if err := rows.Scan(&l.ID, &l.UploadID, &l.Filename, &l.Status, &resources,
			&l.QuarterCount, &l.NodeRecords, &missing, &l.ErrorMessage); err != nil {
			return nil, err
		}
		l.Resources = splitNonEmpty(resources, ",")
		l.MissingSheets = splitNonEmpty(missing, "|")
		out = append(out, l)
	}
	return out, rows.Err()
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"energypassport/internal/model"
)

// CreateEnterprise returns the new enterprise id
func (s *Store) CreateEnterprise(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("enterprise name is required")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO enterprises (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create enterprise: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get enterprise id: %w", err)
	}
	return id, nil
}

// GetEnterprise ErrNotFound when absent
func (s *Store) GetEnterprise(ctx context.Context, id int64) (model.Enterprise, error) {
	var e model.Enterprise
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM enterprises WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Enterprise{}, fmt.Errorf("enterprise %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Enterprise{}, fmt.Errorf("failed to get enterprise: %w", err)
	}
	return e, nil
}

// ListEnterprises ordered by id
func (s *Store) ListEnterprises(ctx context.Context) ([]model.Enterprise, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM enterprises ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enterprises: %w", err)
	}
	defer rows.Close()

	var out []model.Enterprise
	for rows.Next() {
		var e model.Enterprise
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

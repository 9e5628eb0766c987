package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"energypassport/internal/model"
)

// InsertNodeRecords batch insert of extracted nodes for one upload
func (s *Store) InsertNodeRecords(ctx context.Context, uploadID int64, records []model.NodeRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO node_records (
				upload_id, node_name, period,
				active_energy_kwh, reactive_energy_kvarh, cost_sum,
				data_type, data_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			data := r.DataJSON
			if data == nil {
				data = map[string]any{}
			}
			raw, err := json.Marshal(data)
			if err != nil {
				return fmt.Errorf("failed to encode data_json for %s: %w", r.NodeName, err)
			}
			if _, err := stmt.ExecContext(ctx,
				uploadID, r.NodeName, r.Period,
				nullFloat(r.ActiveEnergyKWh), nullFloat(r.ReactiveEnergyKVarh), nullFloat(r.CostSum),
				string(r.DataType), string(raw),
			); err != nil {
				return fmt.Errorf("failed to insert node record: %w", err)
			}
		}
		return nil
	})
}

// ListNodeRecords nodes of one upload in insertion order
func (s *Store) ListNodeRecords(ctx context.Context, uploadID int64) ([]model.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_name, period, active_energy_kwh, reactive_energy_kvarh, cost_sum, data_type, data_json
		FROM node_records WHERE upload_id = ? ORDER BY id
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list node records: %w", err)
	}
	defer rows.Close()

	var out []model.NodeRecord
	for rows.Next() {
		var (
			r                      model.NodeRecord
			active, reactive, cost sql.NullFloat64
			dataType, dataJSON     string
		)
		if err := rows.Scan(&r.NodeName, &r.Period, &active, &reactive, &cost, &dataType, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan node record: %w", err)
		}
		r.ActiveEnergyKWh = floatPtr(active)
		r.ReactiveEnergyKVarh = floatPtr(reactive)
		r.CostSum = floatPtr(cost)
		r.DataType = model.DataType(dataType)
		if err := json.Unmarshal([]byte(dataJSON), &r.DataJSON); err != nil {
			return nil, fmt.Errorf("failed to decode data_json for %s: %w", r.NodeName, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

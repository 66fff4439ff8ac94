package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/domain/repository"
)

// resultColumns is the per-offset row layout of the results table.
const resultColumns = "(security, event_date, model, offset, ar, var_ar, car, var_car, t_stat, p_value, significance, computed_at)"

// ClickHouseResultStore implements Storage for ClickHouse, one row per
// event-window offset.
type ClickHouseResultStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseResultStore creates ClickHouse result storage.
func NewClickHouseResultStore(db *sql.DB, table string) repository.Storage {
	return &ClickHouseResultStore{db: db, table: table}
}

func (s *ClickHouseResultStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseResultStore) Store(ctx context.Context, res *models.SingleEventResult) error {
	return s.StoreBatch(ctx, []*models.SingleEventResult{res})
}

func (s *ClickHouseResultStore) StoreBatch(ctx context.Context, results []*models.SingleEventResult) error {
	if len(results) == 0 {
		return nil
	}

	// Multi-row VALUES insert to keep round-trips low. Each result
	// expands to one row per offset.
	const chunkRows = 2000
	now := time.Now()

	values := make([]string, 0, chunkRows)
	args := make([]interface{}, 0, chunkRows*12)

	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", s.table, resultColumns, strings.Join(values, ","))
		_, err := s.db.ExecContext(ctx, q, args...)
		values = values[:0]
		args = args[:0]
		return err
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		for t, offset := range res.Offsets {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				res.Spec.Security,
				res.Spec.EventDate,
				string(res.Spec.Model),
				int32(offset),
				res.AR[t],
				res.VarAR[t],
				res.CAR[t],
				res.VarCAR[t],
				res.TStat[t],
				res.PValue[t],
				res.Significance[t],
				now,
			)
			if len(values) >= chunkRows {
				if err := flush(); err != nil {
					return fmt.Errorf("store results: %w", err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return nil
}

// Query loads stored rows for one security ordered by event date and
// offset.
func (s *ClickHouseResultStore) Query(ctx context.Context, security string, from, to time.Time, limit int) ([]models.StoredResultRow, error) {
	q := fmt.Sprintf("SELECT security, event_date, model, offset, ar, car, t_stat, p_value, significance FROM %s WHERE security = ? AND event_date >= ? AND event_date <= ? ORDER BY event_date, offset LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, security, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredResultRow
	for rows.Next() {
		var r models.StoredResultRow
		if err := rows.Scan(&r.Security, &r.EventDate, &r.Model, &r.Offset, &r.AR, &r.CAR, &r.TStat, &r.PValue, &r.Significance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseResultStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseResultStore) Close() error {
	return nil // Managed by pkg
}

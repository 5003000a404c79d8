package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/common/metrics"
)

const (
	upsertMenuQuery = `
		INSERT INTO daily_menus (date, menu_text, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET
			menu_text = EXCLUDED.menu_text,
			last_updated = EXCLUDED.last_updated`

	selectMenuQuery = `
		SELECT date, menu_text, last_updated
		FROM daily_menus
		WHERE date = $1`

	selectRangeQuery = `
		SELECT date, menu_text, last_updated
		FROM daily_menus
		WHERE date BETWEEN $1 AND $2
		ORDER BY date`
)

// PostgresStore keeps menus in the daily_menus table.
type PostgresStore struct {
	db       *sql.DB
	location *time.Location
	now      func() time.Time
	logger   logger.Logger
}

// NewPostgresStore uses loc to turn stored DATE values back into midnights.
func NewPostgresStore(db *sql.DB, loc *time.Location, log logger.Logger) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{
		db:       db,
		location: loc,
		now:      time.Now,
		logger:   log.WithFields(map[string]interface{}{"store": "postgres"}),
	}
}

func (s *PostgresStore) SaveMenu(ctx context.Context, date time.Time, menuText string) (err error) {
	defer func() { metrics.MenuStoreWrites.WithLabelValues("save_menu", metrics.StatusLabel(err)).Inc() }()

	if err := validateEntry(date, menuText); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertMenuQuery, dayKey(date), menuText, s.now()); err != nil {
		s.logger.Error("failed to save menu", map[string]interface{}{"date": dayKey(date), "error": err})
		return fmt.Errorf("save menu for %s: %w", dayKey(date), err)
	}
	return nil
}

func (s *PostgresStore) SaveWeeklyMenu(ctx context.Context, entries []Entry) (err error) {
	defer func() { metrics.MenuStoreWrites.WithLabelValues("save_weekly_menu", metrics.StatusLabel(err)).Inc() }()

	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	updatedAt := s.now()
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, upsertMenuQuery, dayKey(e.Date), e.MenuText, updatedAt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("failed to roll back weekly menu", map[string]interface{}{"error": rbErr})
			}
			s.logger.Error("failed to save weekly menu", map[string]interface{}{"date": dayKey(e.Date), "error": err})
			return fmt.Errorf("save menu for %s: %w", dayKey(e.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit weekly menu: %w", err)
	}
	s.logger.Info("saved weekly menu", map[string]interface{}{"days": len(entries)})
	return nil
}

func (s *PostgresStore) GetMenuForDate(ctx context.Context, date time.Time) (Record, bool, error) {
	rec, err := s.scanRecord(s.db.QueryRowContext(ctx, selectMenuQuery, dayKey(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get menu for %s: %w", dayKey(date), err)
	}
	return rec, true, nil
}

func (s *PostgresStore) GetMenusInRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRangeQuery, dayKey(from), dayKey(to))
	if err != nil {
		return nil, fmt.Errorf("get menus %s..%s: %w", dayKey(from), dayKey(to), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresStore) scanRecord(row rowScanner) (Record, error) {
	var (
		day time.Time
		rec Record
	)
	if err := row.Scan(&day, &rec.MenuText, &rec.LastUpdated); err != nil {
		return Record{}, err
	}
	y, m, d := day.Date()
	rec.Date = time.Date(y, m, d, 0, 0, 0, 0, s.location)
	return rec, nil
}

var _ Store = (*PostgresStore)(nil)

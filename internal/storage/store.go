// Package storage persists one serialized menu per calendar day.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"canteen-menu/internal/common/calendar"
)

// ErrInvalidEntry marks a write rejected before it reached the backend.
var ErrInvalidEntry = errors.New("invalid menu entry")

// Record is the stored row for one day.
type Record struct {
	Date        time.Time `json:"date"`
	MenuText    string    `json:"menuText"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Entry is one day of a batch write.
type Entry struct {
	Date     time.Time
	MenuText string
}

// Store is the persistence gateway. Dates are reduced to their calendar day
// before they are used as keys.
type Store interface {
	// SaveMenu inserts or replaces the record for date and refreshes LastUpdated.
	SaveMenu(ctx context.Context, date time.Time, menuText string) error
	// SaveWeeklyMenu applies every entry or none of them.
	SaveWeeklyMenu(ctx context.Context, entries []Entry) error
	// GetMenuForDate reports found=false when no record exists.
	GetMenuForDate(ctx context.Context, date time.Time) (Record, bool, error)
	// GetMenusInRange returns the records from..to inclusive, oldest first.
	GetMenusInRange(ctx context.Context, from, to time.Time) ([]Record, error)
	Ping(ctx context.Context) error
}

func dayKey(t time.Time) string {
	return calendar.FormatDate(calendar.StartOfDay(t))
}

func validateEntry(date time.Time, menuText string) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(menuText) == "" {
		return fmt.Errorf("%w: menu text for %s is empty", ErrInvalidEntry, dayKey(date))
	}
	return nil
}

func validateEntries(entries []Entry) error {
	for i, e := range entries {
		if err := validateEntry(e.Date, e.MenuText); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

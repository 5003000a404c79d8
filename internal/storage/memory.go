package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/common/metrics"
)

// MemoryStore keeps records in process memory. Used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	location *time.Location
	now      func() time.Time
}

func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		records:  make(map[string]Record),
		location: loc,
		now:      time.Now,
	}
}

func (s *MemoryStore) SaveMenu(ctx context.Context, date time.Time, menuText string) (err error) {
	defer func() { metrics.MenuStoreWrites.WithLabelValues("save_menu", metrics.StatusLabel(err)).Inc() }()

	if err := validateEntry(date, menuText); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(date, menuText, s.now())
	return nil
}

func (s *MemoryStore) SaveWeeklyMenu(ctx context.Context, entries []Entry) (err error) {
	defer func() { metrics.MenuStoreWrites.WithLabelValues("save_weekly_menu", metrics.StatusLabel(err)).Inc() }()

	if err := validateEntries(entries); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updatedAt := s.now()
	for _, e := range entries {
		s.put(e.Date, e.MenuText, updatedAt)
	}
	return nil
}

func (s *MemoryStore) put(date time.Time, menuText string, at time.Time) {
	key := dayKey(date)
	day, _ := calendar.ParseDate(key, s.location)
	s.records[key] = Record{Date: day, MenuText: menuText, LastUpdated: at}
}

func (s *MemoryStore) GetMenuForDate(ctx context.Context, date time.Time) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[dayKey(date)]
	return rec, ok, nil
}

func (s *MemoryStore) GetMenusInRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	lo, hi := dayKey(from), dayKey(to)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, rec := range s.records {
		if key >= lo && key <= hi {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Len reports how many days are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Store = (*MemoryStore)(nil)

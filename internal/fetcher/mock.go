package fetcher

import (
	"context"
	"time"

	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/models"
)

const MockSourceName = "mock"

// MockSource produces an empty menu for every workday of the current week.
// It needs no network access.
type MockSource struct {
	now func() time.Time
}

// NewMockSource builds a MockSource; a nil now uses time.Now.
func NewMockSource(now func() time.Time) *MockSource {
	if now == nil {
		now = time.Now
	}
	return &MockSource{now: now}
}

func (s *MockSource) Name() string {
	return MockSourceName
}

func (s *MockSource) FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error) {
	now := s.now()
	days := calendar.WorkWeek(now)

	menus := make([]models.Menu, 0, len(days))
	for _, date := range days {
		menus = append(menus, models.Menu{
			Date:  date,
			Meals: []models.Meal{},
			Metadata: models.MenuMetadata{
				Source:     MockSourceName,
				FetchedAt:  now,
				ValidUntil: date.Add(24 * time.Hour),
			},
		})
	}
	return menus, nil
}

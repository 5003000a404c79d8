// Package confluence reads the weekly menu image attached to a Confluence page
// and extracts per-day meals from it with a vision model.
package confluence

import (
	"context"
	"time"

	"canteen-menu/internal/common/calendar"
	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/models"
)

const SourceName = "confluence"

type Config struct {
	BaseURL string
	Auth    string
	PageID  string
	Timeout time.Duration
}

// AttachmentClient lists and downloads page attachments.
type AttachmentClient interface {
	ListAttachments(ctx context.Context) ([]Attachment, error)
	Download(ctx context.Context, att Attachment) ([]byte, error)
}

// Source implements fetcher.Source on top of page attachments.
type Source struct {
	attachments AttachmentClient
	extractor   MenuExtractor
	location    *time.Location
	now         func() time.Time
	logger      logger.Logger
}

// NewSource wires a source; loc decides which week "this week" is and
// defaults to UTC.
func NewSource(attachments AttachmentClient, extractor MenuExtractor, loc *time.Location, log logger.Logger) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		attachments: attachments,
		extractor:   extractor,
		location:    loc,
		now:         time.Now,
		logger:      log.WithFields(map[string]interface{}{"source": SourceName}),
	}
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error) {
	atts, err := s.attachments.ListAttachments(ctx)
	if err != nil {
		return nil, err
	}

	att, ok := SelectMostRecent(atts)
	if !ok {
		return nil, fetcherrors.NewNoData("No attachments found")
	}
	s.logger.Info("selected menu attachment", map[string]interface{}{
		"attachmentId": att.ID,
		"title":        att.Title,
		"mediaType":    att.MediaType(),
	})

	image, err := s.attachments.Download(ctx, att)
	if err != nil {
		return nil, err
	}

	days, err := s.extractor.Extract(ctx, image, att.MediaType())
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.location)
	menus := BuildMenus(days, calendar.WeekStart(now), now)
	if len(menus) == 0 {
		return nil, fetcherrors.NewEmptyExtraction("No menu data available")
	}
	return menus, nil
}

// BuildMenus turns extracted day lists into menus of the week starting at
// monday. Unknown weekday names are skipped.
func BuildMenus(days []DayMeals, monday, now time.Time) []models.Menu {
	menus := make([]models.Menu, 0, len(days))
	for _, day := range days {
		idx, ok := calendar.WeekdayIndex(day.Weekday)
		if !ok {
			continue
		}
		date := calendar.StartOfDay(monday).AddDate(0, 0, idx)

		meals := make([]models.Meal, 0, len(day.Meals))
		for _, name := range day.Meals {
			meals = append(meals, models.Meal{Name: name, Category: models.MealCategoryMain})
		}

		menus = append(menus, models.Menu{
			Date:  date,
			Meals: meals,
			Metadata: models.MenuMetadata{
				Source:     SourceName,
				FetchedAt:  now,
				ValidUntil: date.Add(24 * time.Hour),
			},
		})
	}
	return menus
}

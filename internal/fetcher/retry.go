package fetcher

import (
	"context"
	"time"

	"canteen-menu/internal/common/calendar"
	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/common/metrics"
	"canteen-menu/internal/models"
)

const (
	DefaultMaxRetries = 1
	DefaultRetryDelay = time.Second
)

// Options configures a RetryingFetcher. MaxRetries below one falls back to
// DefaultMaxRetries and a negative RetryDelay to DefaultRetryDelay.
type Options struct {
	// SourceName is stamped on every fetched menu. Defaults to the source's Name().
	SourceName string
	MaxRetries int
	RetryDelay time.Duration
	Now        func() time.Time
	// Sleep waits between attempts; it returns early with ctx's error when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryingFetcher applies a fixed-delay retry policy and provenance stamping
// to any Source.
type RetryingFetcher struct {
	source     Source
	sourceName string
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	logger     logger.Logger
}

func NewRetryingFetcher(source Source, opts Options, log logger.Logger) *RetryingFetcher {
	f := &RetryingFetcher{
		source:     source,
		sourceName: opts.SourceName,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		now:        opts.Now,
		sleep:      opts.Sleep,
	}
	if f.sourceName == "" {
		f.sourceName = source.Name()
	}
	if f.maxRetries < 1 {
		f.maxRetries = DefaultMaxRetries
	}
	if f.retryDelay < 0 {
		f.retryDelay = DefaultRetryDelay
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.sleep == nil {
		f.sleep = sleepContext
	}
	f.logger = log.WithFields(map[string]interface{}{"source": f.sourceName})
	return f
}

// SourceName is the identifier stamped on fetched menus.
func (f *RetryingFetcher) SourceName() string {
	return f.sourceName
}

// FetchWeeklyMenu runs the source up to MaxRetries times, strictly one attempt
// after another. A non-retryable MenuFetchError is returned unchanged at once.
func (f *RetryingFetcher) FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		attempts = attempt
		f.logger.Info("fetching weekly menu", map[string]interface{}{
			"attempt":    attempt,
			"maxRetries": f.maxRetries,
		})

		menus, err := f.source.FetchWeeklyMenu(ctx)
		if err == nil {
			metrics.MenuFetchAttempts.WithLabelValues(f.sourceName, "success").Inc()
			f.logger.Info("successfully fetched weekly menu", map[string]interface{}{
				"attempt": attempt,
				"menus":   len(menus),
			})
			return f.stamp(menus), nil
		}

		lastErr = err
		metrics.MenuFetchAttempts.WithLabelValues(f.sourceName, "failure").Inc()
		f.logger.Error("failed to fetch weekly menu", map[string]interface{}{
			"attempt":   attempt,
			"error":     err,
			"kind":      string(fetcherrors.KindOf(err)),
			"retryable": fetcherrors.IsRetryable(err),
		})

		if !fetcherrors.IsRetryable(err) {
			metrics.MenuFetchFailures.WithLabelValues(f.sourceName, string(fetcherrors.KindOf(err))).Inc()
			return nil, err
		}

		if attempt < f.maxRetries {
			f.logger.Info("retrying weekly menu fetch", map[string]interface{}{
				"delay": f.retryDelay.String(),
			})
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				break
			}
		}
	}

	metrics.MenuFetchFailures.WithLabelValues(f.sourceName, string(fetcherrors.KindRetryExhausted)).Inc()
	return nil, fetcherrors.NewRetryExhausted(f.sourceName, attempts, lastErr)
}

// FetchDailyMenu fetches the week and returns the menu for date's calendar day.
func (f *RetryingFetcher) FetchDailyMenu(ctx context.Context, date time.Time) (models.Menu, error) {
	menus, err := f.FetchWeeklyMenu(ctx)
	if err != nil {
		return models.Menu{}, err
	}

	day := calendar.StartOfDay(date)
	for _, m := range menus {
		if calendar.StartOfDay(m.Date.In(day.Location())).Equal(day) {
			return m, nil
		}
	}
	return models.Menu{}, fetcherrors.NewNoData("No menu available for " + calendar.FormatDate(day))
}

func (f *RetryingFetcher) stamp(menus []models.Menu) []models.Menu {
	fetchedAt := f.now()
	out := make([]models.Menu, len(menus))
	for i, m := range menus {
		out[i] = m.WithProvenance(f.sourceName, fetchedAt)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

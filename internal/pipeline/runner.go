// Package pipeline runs one acquisition: fetch the week, serialize every day
// and store the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canteen-menu/internal/common/calendar"
	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/common/metrics"
	"canteen-menu/internal/common/observability"
	"canteen-menu/internal/fetcher"
	"canteen-menu/internal/notify"
	"canteen-menu/internal/storage"

	"github.com/google/uuid"
)

const (
	TriggerScheduler = "scheduler"
	TriggerStartup   = "startup"
	TriggerHTTP      = "http"
	TriggerCLI       = "cli"
)

// ErrRunInProgress is returned when another run holds the guard.
var ErrRunInProgress = errors.New("a menu fetch is already in progress")

type Result struct {
	RunID    string        `json:"runId"`
	Trigger  string        `json:"trigger"`
	Dates    []string      `json:"dates"`
	Duration time.Duration `json:"duration"`
}

type Runner struct {
	fetcher  fetcher.Fetcher
	store    storage.Store
	guard    Guard
	notifier notify.Notifier
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Runner)

func WithGuard(g Guard) Option { return func(r *Runner) { r.guard = g } }

func WithNotifier(n notify.Notifier) Option { return func(r *Runner) { r.notifier = n } }

func WithObservability(o *observability.Observability) Option {
	return func(r *Runner) { r.obs = o }
}

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func NewRunner(f fetcher.Fetcher, store storage.Store, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		fetcher:  f,
		store:    store,
		guard:    NewLocalGuard(),
		notifier: notify.Nop{},
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one acquisition. Failures are diagnosed, logged and sent to
// the notifier before being returned.
func (r *Runner) Run(ctx context.Context, trigger string) (Result, error) {
	res := Result{RunID: uuid.NewString(), Trigger: trigger}
	log := r.logger.WithFields(map[string]interface{}{"runId": res.RunID, "trigger": trigger})

	release, ok, err := r.guard.TryAcquire(ctx)
	if err != nil {
		return res, r.fail(ctx, log, res, fmt.Errorf("acquire run guard: %w", err))
	}
	if !ok {
		log.Warn("skipping menu fetch, another run is in progress", nil)
		return res, ErrRunInProgress
	}
	defer release()

	metrics.MenuPipelineActive.Inc()
	defer metrics.MenuPipelineActive.Dec()

	start := r.now()
	log.Info("starting weekly menu fetch", nil)

	menus, err := r.fetcher.FetchWeeklyMenu(ctx)
	if err != nil {
		res.Duration = r.now().Sub(start)
		return res, r.fail(ctx, log, res, err)
	}

	entries := make([]storage.Entry, 0, len(menus))
	for _, m := range menus {
		text, err := m.Serialize()
		if err != nil {
			res.Duration = r.now().Sub(start)
			return res, r.fail(ctx, log, res, err)
		}
		entries = append(entries, storage.Entry{Date: m.Date, MenuText: text})
		res.Dates = append(res.Dates, calendar.FormatDate(m.Date))
	}

	if err := r.store.SaveWeeklyMenu(ctx, entries); err != nil {
		res.Duration = r.now().Sub(start)
		res.Dates = nil
		return res, r.fail(ctx, log, res, fmt.Errorf("store weekly menu: %w", err))
	}

	res.Duration = r.now().Sub(start)
	if len(menus) > 0 {
		r.obs.RecordMenusStored(ctx, menus[0].Metadata.Source, len(menus))
	}
	r.obs.RecordRun(ctx, trigger, "success", res.Duration)
	log.Info("weekly menus fetched and stored", map[string]interface{}{
		"dates":      res.Dates,
		"durationMs": res.Duration.Milliseconds(),
	})
	return res, nil
}

func (r *Runner) fail(ctx context.Context, log logger.Logger, res Result, err error) error {
	d := fetcherrors.Diagnose(err, r.now())
	log.Error("weekly menu fetch failed", d.Fields())
	r.obs.RecordRun(ctx, res.Trigger, "error", res.Duration)

	if nerr := r.notifier.Notify(context.WithoutCancel(ctx), notify.Notification{
		RunID:      res.RunID,
		Trigger:    res.Trigger,
		Diagnostic: d,
	}); nerr != nil {
		log.Warn("failure notification not sent", map[string]interface{}{"error": nerr})
	}
	return err
}

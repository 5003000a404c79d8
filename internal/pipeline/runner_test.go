package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/fetcher"
	"canteen-menu/internal/models"
	"canteen-menu/internal/notify"
	"canteen-menu/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fetcherFunc func(ctx context.Context) ([]models.Menu, error)

func (f fetcherFunc) FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error) { return f(ctx) }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

type failingStore struct {
	*storage.MemoryStore
	err error
}

func (f *failingStore) SaveWeeklyMenu(ctx context.Context, entries []storage.Entry) error {
	return f.err
}

var wednesday = time.Date(2024, 6, 5, 6, 0, 0, 0, time.UTC)

func mockFetcher(t *testing.T) fetcher.Fetcher {
	return fetcher.NewRetryingFetcher(
		fetcher.NewMockSource(func() time.Time { return wednesday }),
		fetcher.Options{Now: func() time.Time { return wednesday }},
		logger.NewTestLogger(t),
	)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestRunner_StoresWeek(t *testing.T) {
	store := storage.NewMemoryStore(time.UTC)
	notifier := &recordingNotifier{}
	runner := NewRunner(mockFetcher(t), store, logger.NewTestLogger(t), WithNotifier(notifier))

	res, err := runner.Run(context.Background(), TriggerCLI)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, TriggerCLI, res.Trigger)
	assert.Equal(t, []string{"2024-06-03", "2024-06-04", "2024-06-05", "2024-06-06", "2024-06-07"}, res.Dates)
	assert.Equal(t, 5, store.Len())
	assert.Empty(t, notifier.sent)

	rec, found, err := store.GetMenuForDate(context.Background(), time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, found)
	menu, err := models.ParseMenu(rec.MenuText)
	require.NoError(t, err)
	assert.Equal(t, fetcher.MockSourceName, menu.Metadata.Source)
	assert.Empty(t, menu.Meals)
}

func TestRunner_FetchFailureIsDiagnosedAndNotified(t *testing.T) {
	store := storage.NewMemoryStore(time.UTC)
	notifier := &recordingNotifier{}
	noData := fetcherrors.NewNoData("No attachments found")
	runner := NewRunner(fetcherFunc(func(ctx context.Context) ([]models.Menu, error) {
		return nil, noData
	}), store, logger.NewTestLogger(t), WithNotifier(notifier), WithClock(func() time.Time { return wednesday }))

	res, err := runner.Run(context.Background(), TriggerScheduler)
	assert.Same(t, noData, err)
	assert.Empty(t, res.Dates)
	assert.Zero(t, store.Len())

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, res.RunID, sent.RunID)
	assert.Equal(t, TriggerScheduler, sent.Trigger)
	assert.Equal(t, fetcherrors.DiagnosticType, sent.Diagnostic.Type)
	assert.Equal(t, fetcherrors.KindNoData, sent.Diagnostic.Kind)
	assert.False(t, sent.Diagnostic.Retryable)
	assert.Equal(t, wednesday, sent.Diagnostic.Timestamp)
}

func TestRunner_StoreFailureIsUnexpected(t *testing.T) {
	notifier := &recordingNotifier{}
	store := &failingStore{MemoryStore: storage.NewMemoryStore(time.UTC), err: stderrors.New("connection refused")}
	runner := NewRunner(mockFetcher(t), store, logger.NewTestLogger(t), WithNotifier(notifier))

	res, err := runner.Run(context.Background(), TriggerHTTP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, res.Dates)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, fetcherrors.KindUnexpected, notifier.sent[0].Diagnostic.Kind)
}

func TestRunner_OverlappingRunIsSkipped(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	calls := 0
	slow := fetcherFunc(func(ctx context.Context) ([]models.Menu, error) {
		calls++
		once.Do(func() { close(started) })
		<-unblock
		return nil, nil
	})

	notifier := &recordingNotifier{}
	runner := NewRunner(slow, storage.NewMemoryStore(time.UTC), logger.NewTestLogger(t), WithNotifier(notifier))

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), TriggerScheduler)
		done <- err
	}()
	<-started

	_, err := runner.Run(context.Background(), TriggerHTTP)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.Empty(t, notifier.sent, "a skipped run is not a failure")

	// The guard is free again.
	_, err = runner.Run(context.Background(), TriggerHTTP)
	assert.NotErrorIs(t, err, ErrRunInProgress)
}

// Package fetcher turns menu sources into retried, provenance-stamped weekly
// menu fetches.
package fetcher

import (
	"context"

	"canteen-menu/internal/models"
)

// Source is a strategy that can produce the menus of the current week from
// one specific origin.
type Source interface {
	Name() string
	FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error)
}

// Fetcher is what triggers depend on: a weekly fetch with retry policy applied.
type Fetcher interface {
	FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context) ([]models.Menu, error)
}

func (f SourceFunc) Name() string {
	return f.SourceName
}

func (f SourceFunc) FetchWeeklyMenu(ctx context.Context) ([]models.Menu, error) {
	return f.Fn(ctx)
}

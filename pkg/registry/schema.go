// pkg/registry/schema.go
package registry

import (
	"time"

	"canteen-menu/internal/common/config"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/fetcher"
)

// Deps is what a source factory may draw on.
type Deps struct {
	Config   *config.Config
	Location *time.Location
	Logger   logger.Logger
}

// Factory builds one menu source from configuration.
type Factory func(d Deps) (fetcher.Source, error)

// SourceInfo describes a registered source for listings.
type SourceInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Requires    []string `json:"requires,omitempty"`
}

type entry struct {
	info    SourceInfo
	factory Factory
}

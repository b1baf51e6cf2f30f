package storage

import (
	"context"

	"github.com/julianstephens/autoblock/internal/models"
)

// RunConfigStore persists the validated schedule set used by unattended runs.
type RunConfigStore interface {
	Save(models.ScheduleSet) error
	Load() (models.ScheduleSet, error)
	Exists() bool
	Path() string
}

// HistoryStore records the outcome of every run and install.
type HistoryStore interface {
	// Lifecycle
	Open(ctx context.Context) error
	Close() error

	// Records
	Append(ctx context.Context, rec models.RunRecord) (models.RunRecord, error)
	List(ctx context.Context, limit int) ([]models.RunRecord, error)

	// Utils
	Path() string
}

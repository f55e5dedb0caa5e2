package store

import (
	"context"

	"github.com/sells-group/draftscan/internal/model"
)

// Store defines durable persistence for document baselines.
type Store interface {
	// GetBaseline returns the saved baseline for documentID, or nil when the
	// document has none. A missing baseline is not an error.
	GetBaseline(ctx context.Context, documentID string) (*model.Baseline, error)
	// SaveBaseline inserts or replaces the baseline and assigns it a new revision.
	SaveBaseline(ctx context.Context, documentID, content string) (*model.Baseline, error)
	// DeleteBaseline removes the baseline. Deleting a missing baseline is a no-op.
	DeleteBaseline(ctx context.Context, documentID string) error
	// ListBaselines returns every stored baseline ordered by document id.
	ListBaselines(ctx context.Context) ([]model.Baseline, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

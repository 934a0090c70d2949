// Package remote defines the contract for the remote content service.
package remote

import (
	"context"

	"github.com/okian/hntally/internal/domain/model"
)

// Store fetches items from the remote content service. Implementations must
// be safe for concurrent use and honor ctx cancellation.
type Store interface {
	// ListTop returns at most n top-level ids in ranking order. The list may
	// be shorter than n.
	ListTop(ctx context.Context, n int) ([]model.ItemID, error)

	// GetItem returns the item with the given id.
	// Returns ErrNotFound for missing records and empty payloads.
	GetItem(ctx context.Context, id model.ItemID) (model.Item, error)
}

package export

import (
	"context"

	"whatsthedamage/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter appends a flattened result somewhere external.
	SummaryWriter interface {
		AppendSummary(ctx context.Context, result core.CachedResult) error
	}
)

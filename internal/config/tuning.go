package config

import (
	"context"

	"github.com/ghostwire/ghostwire/internal/tuning"
)

// TuningStore builds the internal/tuning.Store this Config describes:
// defaults only if TuningFile is unset, otherwise loaded from and
// watched at that path.
func (c *Config) TuningStore(ctx context.Context) (*tuning.Store, error) {
	return tuning.NewStore(ctx, c.TuningFile)
}

package publish

import (
	"context"

	"media-watcher/internal/logging"
)

// NoOp stands in for Git when publishing is disabled.
type NoOp struct{}

// Publish logs the files and does nothing else.
func (NoOp) Publish(_ context.Context, files []string) error {
	logging.Info("Publishing disabled, rendered %d files locally", len(files))
	return nil
}

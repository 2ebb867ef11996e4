package talent

import (
	"context"
	"log/slog"
)

// LogPerformer writes spoken text to the log. It stands in for a speech
// engine.
type LogPerformer struct {
	Logger *slog.Logger
}

func (p LogPerformer) Speak(ctx context.Context, text string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "[speech] speak", "text", text)
	return nil
}

package talent

import (
	"context"

	"rigela/internal/workerutil"
)

// inlineSpawner runs tasks synchronously.
type inlineSpawner struct{}

func (inlineSpawner) Spawn(_ string, fn workerutil.Task) error {
	fn(context.Background())
	return nil
}

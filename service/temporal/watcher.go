package temporal

import (
	"context"
)

// Watcher starts transaction watch workflows.
type Watcher interface {
	// StartWatch starts a WatchTransactionWorkflow for signature and returns
	// its workflow ID. Starting a watch that is already running returns the
	// running workflow's ID.
	StartWatch(ctx context.Context, signature string) (string, error)
}

// WatchWorkflowID returns the Temporal workflow ID for a signature.
func WatchWorkflowID(signature string) string {
	return "watch-tx-" + signature
}

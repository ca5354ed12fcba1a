package graph

import (
	"context"
	"fmt"
	"time"
)

// nodeTimeout resolves the timeout for one node invocation by precedence:
// per-node override, then executor default, then none (0 = unlimited).
func nodeTimeout(override, def time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if def > 0 {
		return def
	}
	return 0
}

// runNodeWithTimeout executes a node, enforcing the resolved timeout.
//
// A timed-out attempt is reported as a failure of that node (NodeError
// wrapping context.DeadlineExceeded), never a silent skip. The node is
// invoked synchronously: cancellation during execution is advisory, and the
// caller sees the result only after the node returns, so no partially
// applied update can escape without a merge record.
func runNodeWithTimeout[S any](
	ctx context.Context,
	node Node[S],
	nodeID string,
	state S,
	override, def time.Duration,
) (NodeResult[S], error) {
	timeout := nodeTimeout(override, def)
	if timeout == 0 {
		return node.Run(ctx, state), nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := node.Run(timeoutCtx, state)

	if timeoutCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return result, &NodeError{
			NodeID:  nodeID,
			Message: fmt.Sprintf("exceeded timeout of %v", timeout),
			Cause:   context.DeadlineExceeded,
		}
	}
	return result, nil
}

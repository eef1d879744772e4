package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// errSuperseded reports a result that arrived after a newer Evaluate call.
var errSuperseded = errors.New("evaluation superseded by newer request")

// evalResult carries one evaluation's outcome from its goroutine.
type evalResult struct {
	plan   *Plan
	errors []EvalError
	err    error
}

// waitWithTimeout returns the plan delivered on ch, or an error once
// timeout elapses. A result tagged with gen is dropped if currentGen has
// moved on in the meantime.
//
// A timed-out evaluation keeps running in its sandbox; whatever it sends
// later lands in the buffered channel and is never read.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Plan, []EvalError, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		stale := gen != *currentGen
		mu.Unlock()
		if stale {
			return nil, nil, errSuperseded
		}
		return res.plan, res.errors, res.err
	case <-deadline.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}

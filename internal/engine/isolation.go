package engine

import (
	"context"
	"fmt"

	"erbgo/internal/common/errors"
	"erbgo/internal/erb"
)

type outcome struct {
	value interface{}
	err   error
}

// runIsolated executes on a dedicated goroutine, one of at most MaxWorkers,
// and waits for it. Failing to get a worker or a worker panic is a worker
// error; evaluator errors come back unchanged.
func (e *Engine) runIsolated(ctx context.Context, exec *erb.Execution) (interface{}, error) {
	if err := e.workers.Acquire(ctx, 1); err != nil {
		return nil, errors.WorkerError("no isolation worker available", err).
			WithContext("filename", exec.Filename)
	}
	defer e.workers.Release(1)

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.WorkerError(fmt.Sprintf("isolation worker panicked: %v", r), nil).
					WithContext("filename", exec.Filename)}
			}
		}()
		value, err := e.evaluator.Execute(ctx, exec)
		done <- outcome{value: value, err: err}
	}()

	res := <-done
	return res.value, res.err
}

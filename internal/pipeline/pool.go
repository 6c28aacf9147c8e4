package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spherical/slide-converter/internal/domain"
)

// pageTask processes one 1-based page index
type pageTask func(ctx context.Context, index int) error

// failHandler marks the page slot as failed and returns the typed error to record
type failHandler func(index int, err error) error

// runPool runs task once per page index 1..n on at most Workers goroutines.
// Results are stored by index, so completion order never affects placement.
// Every index is attempted unless FailFast is set, in which case the first
// failure cancels the remaining tasks and they are recorded as failures.
func (p *Pipeline) runPool(ctx context.Context, stage string, n int, task pageTask, fail failHandler) domain.StageResult {
	result := domain.StageResult{Stage: stage, Tasks: make([]domain.TaskResult, n)}
	if n == 0 {
		return result
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int, n)
	for i := 1; i <= n; i++ {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers && w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range work {
				start := time.Now()
				err := p.runTask(poolCtx, index, task)
				if err != nil {
					err = fail(index, err)
					if p.opts.FailFast {
						cancel()
					}
				}
				result.Tasks[index-1] = domain.TaskResult{Index: index, Err: err, Duration: time.Since(start)}
			}
		}()
	}
	wg.Wait()

	return result
}

// runTask holds a process-wide task slot and the per-task timeout while task runs.
// A panicking task fails only its own page.
func (p *Pipeline) runTask(ctx context.Context, index int, task pageTask) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.tasks.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.tasks.Release(1)

	if p.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d task panicked: %v", index, r)
		}
	}()

	return task(ctx, index)
}

// Package schedule expands cohorts into composition tasks and runs them on a
// bounded worker pool.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/offervideo/internal/catalog"
	"github.com/maauso/offervideo/internal/cohort"
	"github.com/maauso/offervideo/internal/compose"
)

// MinWorkers is the smallest pool size.
const MinWorkers = 2

// Expand turns every cohort of n offers into n tasks. Each task's companions
// are the other members of the cohort in cohort order.
func Expand(cohorts []cohort.Cohort) []compose.Task {
	var tasks []compose.Task
	for _, c := range cohorts {
		for i, target := range c.Offers {
			companions := make([]catalog.Offer, 0, len(c.Offers)-1)
			companions = append(companions, c.Offers[:i]...)
			companions = append(companions, c.Offers[i+1:]...)
			tasks = append(tasks, compose.Task{Target: target, Companions: companions})
		}
	}
	return tasks
}

// Outcome is the result of one task. Err is nil on success.
type Outcome struct {
	Task compose.Task
	Err  error
}

// TaskFunc executes one task.
type TaskFunc func(ctx context.Context, task compose.Task) error

// Pool runs tasks with bounded concurrency.
type Pool struct {
	workers int
	logger  *slog.Logger
}

// DefaultWorkers returns max(NumCPU-1, MinWorkers).
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, MinWorkers)
}

// NewPool creates a pool. A worker count below MinWorkers is raised to it.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers: max(workers, MinWorkers),
		logger:  logger,
	}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// Run executes fn for every task and returns one outcome per task, in task
// order. A failing or panicking task never affects its siblings. Once ctx is
// cancelled no further tasks start; those are reported with ctx's error.
// Tasks already running see a context that is not cancelled and run to
// completion.
func (p *Pool) Run(ctx context.Context, tasks []compose.Task, fn TaskFunc) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	for i, t := range tasks {
		outcomes[i].Task = t
	}

	var g errgroup.Group
	g.SetLimit(p.workers)

	taskCtx := context.WithoutCancel(ctx)
	var skipped atomic.Int64

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				skipped.Add(1)
				return nil
			}
			outcomes[i].Err = p.runTask(taskCtx, tasks[i], fn)
			return nil
		})
	}

	_ = g.Wait()

	if n := skipped.Load(); n > 0 {
		p.logger.Warn("tasks not started due to cancellation",
			slog.Int64("skipped", n),
			slog.Int("total", len(tasks)),
		)
	}
	return outcomes
}

func (p *Pool) runTask(ctx context.Context, task compose.Task, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				slog.String("offer_id", task.Target.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("task %s panicked: %v", task.Target.ID, r)
		}
	}()
	return fn(ctx, task)
}

package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mtr/internal/config"
	"mtr/internal/domain"
)

var _ Executor = (*WorkerPool)(nil)

// WorkerPool runs modules on a fixed number of workers. With one processor the
// batch is strictly sequential.
type WorkerPool struct {
	config    *config.Config
	runner    ModuleRunner
	scheduler Scheduler
	progress  Progress
	log       zerolog.Logger
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(cfg *config.Config, runner ModuleRunner, scheduler Scheduler, log zerolog.Logger) *WorkerPool {
	return &WorkerPool{
		config:    cfg,
		runner:    runner,
		scheduler: scheduler,
		log:       log,
	}
}

// SetProgress sets the progress bar for the worker pool
func (wp *WorkerPool) SetProgress(progress Progress) {
	wp.progress = progress
}

// Execute runs every module and returns one result per distinct module, in the
// order given. A module's outcome never stops the batch.
func (wp *WorkerPool) Execute(ctx context.Context, modules []string) ([]domain.ModuleResult, time.Duration) {
	modules = dedupe(modules)
	if len(modules) == 0 {
		return nil, 0
	}

	workerCount := wp.config.Processors
	if workerCount <= 0 {
		workerCount = 1
	}
	distribution := wp.scheduler.Schedule(modules, workerCount)

	var mu sync.Mutex
	var passed, notPassed int
	byModule := make(map[string]domain.ModuleResult, len(modules))
	startTime := time.Now()

	var wg sync.WaitGroup
	for i, batch := range distribution {
		wg.Add(1)
		go func(workerID int, batch []string) {
			defer wg.Done()
			for _, module := range batch {
				result := wp.runner.Run(ctx, module, workerID)

				mu.Lock()
				byModule[module] = result
				if result.Outcome == domain.OutcomePassed {
					passed++
				} else {
					notPassed++
				}
				if wp.progress != nil {
					wp.progress.Update(passed, notPassed)
				}
				mu.Unlock()
			}
		}(i+1, batch)
	}
	wg.Wait()

	if wp.progress != nil {
		wp.progress.Finish()
	}

	results := make([]domain.ModuleResult, 0, len(modules))
	for _, module := range modules {
		results = append(results, byModule[module])
	}

	duration := time.Since(startTime)
	wp.log.Debug().Int("modules", len(results)).Int("workers", len(distribution)).Dur("duration", duration).Msg("batch finished")
	return results, duration
}

func dedupe(modules []string) []string {
	seen := make(map[string]bool, len(modules))
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

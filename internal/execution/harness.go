package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mtr/internal/config"
	"mtr/internal/discovery"
	"mtr/internal/domain"
	"mtr/internal/report"
)

// Harness exposes the two entry points: one module, or every module found
// under the utils root. Both refresh the aggregate report.
type Harness struct {
	config  *config.Config
	scanner *discovery.Scanner
	filter  *discovery.Filter
	runner  ModuleRunner
	pool    *WorkerPool
	log     zerolog.Logger
}

// NewHarness creates a new Harness
func NewHarness(cfg *config.Config, scanner *discovery.Scanner, filter *discovery.Filter, runner ModuleRunner, pool *WorkerPool, log zerolog.Logger) *Harness {
	return &Harness{
		config:  cfg,
		scanner: scanner,
		filter:  filter,
		runner:  runner,
		pool:    pool,
		log:     log,
	}
}

// Pool returns the worker pool used by RunAll
func (h *Harness) Pool() *WorkerPool {
	return h.pool
}

// Modules lists the modules under the utils root matching the name filter
func (h *Harness) Modules() ([]string, error) {
	modules, err := h.scanner.ScanModules()
	if err != nil {
		return nil, err
	}
	return h.filter.FilterByName(modules, h.config.Flags.NameFilter), nil
}

// RunSingle runs one module on worker 1
func (h *Harness) RunSingle(ctx context.Context, module string) domain.ModuleResult {
	result := h.runner.Run(ctx, module, 1)
	h.aggregate([]domain.ModuleResult{result})
	return result
}

// RunAll runs the given modules, or every discovered module when modules is nil
func (h *Harness) RunAll(ctx context.Context, modules []string) ([]domain.ModuleResult, time.Duration, error) {
	if modules == nil {
		var err error
		modules, err = h.Modules()
		if err != nil {
			return nil, 0, err
		}
	}
	results, duration := h.pool.Execute(ctx, modules)
	h.aggregate(results)
	return results, duration, nil
}

func (h *Harness) aggregate(results []domain.ModuleResult) {
	paths := make(map[string]string, len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		if r.ReportPath == "" {
			continue
		}
		paths[r.Module] = r.ReportPath
		order = append(order, r.Module)
	}
	// Keep the previous aggregate rather than replace it with an empty one
	if len(order) == 0 {
		return
	}

	skipped, err := report.MergeFiles(paths, order, h.config.GetAggregateReportPath())
	for _, s := range skipped {
		h.log.Warn().Err(s).Msg("report left out of aggregate")
	}
	if err != nil {
		h.log.Error().Err(err).Msg("could not write aggregate report")
	}
}

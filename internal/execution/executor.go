package execution

import (
	"context"
	"time"

	"mtr/internal/domain"
)

// ModuleRunner runs the whole lifecycle of one module
type ModuleRunner interface {
	Run(ctx context.Context, module string, workerID int) domain.ModuleResult
}

// Executor runs a batch of modules
type Executor interface {
	Execute(ctx context.Context, modules []string) ([]domain.ModuleResult, time.Duration)
}

// Progress receives batch progress
type Progress interface {
	Update(successCount, failCount int)
	Finish()
}

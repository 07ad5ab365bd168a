package execution

// Scheduler distributes modules across workers
type Scheduler interface {
	Schedule(modules []string, workerCount int) [][]string
}

// RoundRobinScheduler distributes modules evenly across workers. The assignment
// only depends on the module order, so with per-worker databases a module keeps
// the same database from one run to the next.
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule distributes modules evenly across workers using round-robin
func (s *RoundRobinScheduler) Schedule(modules []string, workerCount int) [][]string {
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(modules) && len(modules) > 0 {
		workerCount = len(modules)
	}

	distribution := make([][]string, workerCount)
	for i := range distribution {
		distribution[i] = make([]string, 0)
	}

	for i, module := range modules {
		workerIndex := i % workerCount
		distribution[workerIndex] = append(distribution[workerIndex], module)
	}

	return distribution
}

package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultOptimizeTimeout bounds a single optimize request, snapshot read included.
	DefaultOptimizeTimeout = 5 * time.Second

	// DefaultOptimizeCacheTTL is how long a computed plan is cached per group version.
	DefaultOptimizeCacheTTL = 10 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

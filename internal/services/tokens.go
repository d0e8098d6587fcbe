package services

// Estimator approximates the token cost of a piece of text. Implementations
// must be deterministic, side-effect-free, and never return less than 1.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator approximates tokens as roughly Divisor characters per
// token. A cheap surrogate for a real tokenizer; a model-aware estimator can
// replace it without touching any caller.
type HeuristicEstimator struct {
	Divisor int
}

// NewHeuristicEstimator creates an estimator with the given chars-per-token
// divisor, defaulting to 4.
func NewHeuristicEstimator(divisor int) HeuristicEstimator {
	if divisor <= 0 {
		divisor = 4
	}
	return HeuristicEstimator{Divisor: divisor}
}

// Estimate returns max(1, len(text)/Divisor).
func (e HeuristicEstimator) Estimate(text string) int {
	divisor := e.Divisor
	if divisor <= 0 {
		divisor = 4
	}
	n := len(text) / divisor
	if n < 1 {
		return 1
	}
	return n
}

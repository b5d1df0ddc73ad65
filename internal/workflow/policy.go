package workflow

// Decision is the outcome of evaluating the retry policy after a Test stage.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionStopSuccess
	DecisionStopFailure
)

// String returns a short tag for the decision, for logging.
func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionStopSuccess:
		return "stop-success"
	case DecisionStopFailure:
		return "stop-failure"
	default:
		return "unknown"
	}
}

// Decide maps a Test outcome to the next move. attemptCount is the value
// before any fix increment: the check compares attempts already spent plus
// the one pending against the ceiling, which caps total Code/Test executions
// at exactly maxAttempts.
//
// With maxAttempts=3: run 1 sees attemptCount=0 (0+1 < 3, retry), run 2 sees
// 1 (1+1 < 3, retry), run 3 sees 2 (2+1 >= 3, stop).
func Decide(success bool, attemptCount, maxAttempts int) Decision {
	if success {
		return DecisionStopSuccess
	}
	if attemptCount+1 >= maxAttempts {
		return DecisionStopFailure
	}
	return DecisionRetry
}

package errcode

// Error code convention:
// - 0: no error
// - 4xxx: recoverable/advisory conditions (flow continued or was skipped)
// - 5xxx: system errors (flow was aborted)
const (
	OK              = 0
	AnalysisSkipped = 4001
	SystemError     = 5000
)

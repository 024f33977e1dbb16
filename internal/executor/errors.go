package executor

import "errors"

// Sentinel errors for the two abort conditions the orchestrator itself
// raises. Store failures surface as status.ErrUnavailable and resolution
// failures as script.ErrConfiguration; all four terminate the activation
// early and nothing is retried until the next activation.
var (
	// ErrScriptFailed marks an activation aborted because a script
	// returned an error (or panicked). The script's record is set to
	// fail before the abort, so the next activation retries it.
	ErrScriptFailed = errors.New("script execution failed")

	// ErrInconsistentState marks a script found in status running at the
	// start of a cycle. That means either a concurrent activation or a
	// crash mid-run; the runner refuses to guess and requires an explicit
	// operator reset.
	ErrInconsistentState = errors.New("script in inconsistent state")
)

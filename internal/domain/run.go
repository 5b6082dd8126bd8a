package domain

import "time"

// Status is the lifecycle state of one asset within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the execution adapter reported failure.
	StatusFailed Status = "failed"

	// StatusFailedCheck means the adapter reported success but the target
	// table was missing or malformed afterwards.
	StatusFailedCheck Status = "failed-check"

	// StatusSkipped means the asset was never attempted because an
	// ancestor did not succeed.
	StatusSkipped Status = "skipped"

	// StatusNotRun means the run was cancelled before the asset started.
	StatusNotRun Status = "not-run"
)

// AssetResult records the outcome of one asset in a run.
type AssetResult struct {
	Name   string
	Target TableRef
	Status Status

	// Detail carries the error message for failed assets, or the name of
	// the failing ancestor for skipped ones.
	Detail string
}

// RunReport is the outcome of one orchestrator run. Constructed fresh per
// invocation and returned to the caller; never held in process-wide state.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	// Results are ordered by the deterministic execution order.
	Results []AssetResult
}

// OK reports whether every asset in the run succeeded.
func (r *RunReport) OK() bool {
	for _, res := range r.Results {
		if res.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Failed returns every result that did not succeed.
func (r *RunReport) Failed() []AssetResult {
	var out []AssetResult
	for _, res := range r.Results {
		if res.Status != StatusSucceeded {
			out = append(out, res)
		}
	}
	return out
}

package domain

// Deploy statuses reported by the metadata service.
const (
	StatusPending          = "Pending"
	StatusInProgress       = "InProgress"
	StatusSucceeded        = "Succeeded"
	StatusSucceededPartial = "SucceededPartial"
	StatusFailed           = "Failed"
	StatusCanceling        = "Canceling"
	StatusCanceled         = "Canceled"
)

// DeployResult is the status of an asynchronous deploy, with details once requested.
type DeployResult struct {
	ID                       string        `json:"id"`
	Done                     bool          `json:"done"`
	Status                   string        `json:"status"`
	Success                  bool          `json:"success"`
	CheckOnly                bool          `json:"checkOnly,omitempty"`
	ErrorMessage             string        `json:"errorMessage,omitempty"`
	NumberComponentsTotal    int           `json:"numberComponentsTotal"`
	NumberComponentsDeployed int           `json:"numberComponentsDeployed"`
	NumberComponentErrors    int           `json:"numberComponentErrors"`
	NumberTestsTotal         int           `json:"numberTestsTotal"`
	NumberTestsCompleted     int           `json:"numberTestsCompleted"`
	NumberTestErrors         int           `json:"numberTestErrors"`
	Details                  DeployDetails `json:"details"`
}

// DeployDetails carries component failures and the test run of a deploy.
type DeployDetails struct {
	ComponentFailures []ComponentFailure `json:"componentFailures,omitempty"`
	RunTestResult     *TestRunResult     `json:"runTestResult,omitempty"`
}

// HasTestResult reports whether the deploy executed tests or produced coverage.
func (r *DeployResult) HasTestResult() bool {
	return r != nil && r.Details.RunTestResult != nil
}

// Finished reports whether the deploy reached a terminal status.
func (r *DeployResult) Finished() bool {
	if r == nil {
		return false
	}

	switch r.Status {
	case StatusSucceeded, StatusSucceededPartial, StatusFailed, StatusCanceled:
		return true
	}

	return r.Done
}

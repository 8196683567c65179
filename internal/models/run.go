package models

// ErrorType classifies a failed submission. It only drives display styling.
type ErrorType string

const (
	ErrorTimeout     ErrorType = "timeout"
	ErrorSyntax      ErrorType = "syntax"
	ErrorRuntime     ErrorType = "runtime"
	ErrorTestFailure ErrorType = "test_failure"
)

// UnknownErrorMessage is shown when a run response carries neither output nor detail
const UnknownErrorMessage = "Unknown error"

// RunRequest is the body of POST /api/exercises/{topic}/{name}/run
type RunRequest struct {
	Code string `json:"code"`
}

// RunResponse is the decoded body of a run call. Detail is set instead of
// Output when the server rejected the request.
type RunResponse struct {
	Output    string    `json:"output,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Passed    bool      `json:"passed"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}

// Message returns the text to display for the response
func (r RunResponse) Message() string {
	switch {
	case r.Output != "":
		return r.Output
	case r.Detail != "":
		return r.Detail
	default:
		return UnknownErrorMessage
	}
}

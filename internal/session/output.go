package session

import "github.com/terra-clan/drills/internal/models"

// OutputStatus is the coarse styling of the output panel
type OutputStatus string

const (
	OutputNeutral OutputStatus = ""
	OutputSuccess OutputStatus = "success"
	OutputError   OutputStatus = "error"
)

// OutputClass is the styling of the output panel
type OutputClass struct {
	Status    OutputStatus
	ErrorType models.ErrorType
}

// String renders the class as a style token list, e.g. "error timeout-error"
func (o OutputClass) String() string {
	if o.Status == OutputError && o.ErrorType != "" {
		return "error " + string(o.ErrorType) + "-error"
	}
	return string(o.Status)
}

func outputClass(s State) OutputClass {
	switch {
	case s.Passed:
		return OutputClass{Status: OutputSuccess}
	case s.Output == "":
		return OutputClass{Status: OutputNeutral}
	default:
		return OutputClass{Status: OutputError, ErrorType: s.ErrorType}
	}
}

package stubapi

import (
	"context"
	"fmt"

	"github.com/terra-clan/drills/internal/models"
)

// MaxCodeSize is the largest accepted submission, in bytes
const MaxCodeSize = 50_000

// DefaultPassOutput is the output of a run without a scripted result
const DefaultPassOutput = "All tests passed!"

// Runner produces the result of a submission
type Runner interface {
	Run(ctx context.Context, ex *Exercise, code string) models.RunResponse
}

// ScriptedRunner replays the fixture's scripted result. It never executes
// submitted code.
type ScriptedRunner struct{}

// Run returns the scripted result of ex
func (ScriptedRunner) Run(_ context.Context, ex *Exercise, code string) models.RunResponse {
	if size := len(code); size > MaxCodeSize {
		return models.RunResponse{
			Passed:    false,
			Output:    fmt.Sprintf("Code too large: %d bytes (max %d)", size, MaxCodeSize),
			ErrorType: models.ErrorRuntime,
		}
	}

	if ex.Result != nil {
		return *ex.Result
	}
	return models.RunResponse{Passed: true, Output: DefaultPassOutput}
}

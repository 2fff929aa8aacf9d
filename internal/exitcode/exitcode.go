package exitcode

import (
	"os"
	"strings"

	"github.com/felixgeelhaar/chainrun/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates a structural problem found before anything ran:
	// unknown node, cycle, invalid filter, undefined argument, bad plan document
	ConfigError = 3

	// ExecutionFailed indicates at least one invocation failed
	ExecutionFailed = 4

	// Interrupted indicates the run was stopped by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if ce, ok := errors.As(err); ok {
		switch ce.Code.Category() {
		case "GRAPH", "MATRIX", "SCOPE", "CODEC", "WORKFLOW":
			return ConfigError
		case "USAGE":
			return UsageError
		case "EXEC":
			if ce.Code == errors.ErrCodeInterrupted {
				return Interrupted
			}
			return ExecutionFailed
		}
	}

	// cobra reports flag problems as plain errors
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") ||
		strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Workflow or plan error"
	case ExecutionFailed:
		return "Execution failed"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}

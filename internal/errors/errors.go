package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Graph errors (GRAPH-001 to GRAPH-099)
	ErrCodeUnknownNode ErrorCode = "GRAPH-001"
	ErrCodeGraphCycle  ErrorCode = "GRAPH-002"

	// Matrix errors (MATRIX-001 to MATRIX-099)
	ErrCodeInvalidFilter ErrorCode = "MATRIX-001"

	// Scope errors (SCOPE-001 to SCOPE-099)
	ErrCodeUndefinedArgument ErrorCode = "SCOPE-001"
	ErrCodeInvalidTemplate   ErrorCode = "SCOPE-002"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeSpawnFailure        ErrorCode = "EXEC-001"
	ErrCodeTaskFailure         ErrorCode = "EXEC-002"
	ErrCodeInterrupted         ErrorCode = "EXEC-003"
	ErrCodeFingerprintMismatch ErrorCode = "EXEC-004"

	// Plan document errors (CODEC-001 to CODEC-099)
	ErrCodeCodecFailure ErrorCode = "CODEC-001"

	// Workflow errors (WORKFLOW-001 to WORKFLOW-099)
	ErrCodeWorkflowNotFound        ErrorCode = "WORKFLOW-001"
	ErrCodeWorkflowInvalid         ErrorCode = "WORKFLOW-002"
	ErrCodeWorkflowVersionMismatch ErrorCode = "WORKFLOW-003"

	// Usage errors (USAGE-001 to USAGE-099)
	ErrCodeInvalidArgument ErrorCode = "USAGE-001"
)

// Category returns the prefix of the code, e.g. "GRAPH" for "GRAPH-001".
func (c ErrorCode) Category() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}

// ChainrunError represents an enhanced error with code, suggestions, and documentation
type ChainrunError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *ChainrunError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ChainrunError) Unwrap() error {
	return e.Cause
}

// New creates a new ChainrunError
func New(code ErrorCode, message string) *ChainrunError {
	return &ChainrunError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new ChainrunError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *ChainrunError {
	return &ChainrunError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *ChainrunError) WithSuggestion(suggestion string) *ChainrunError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ChainrunError) WithSuggestions(suggestions ...string) *ChainrunError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *ChainrunError) WithDocs(url string) *ChainrunError {
	e.DocsURL = url
	return e
}

// As finds the first ChainrunError in err's chain.
func As(err error) (*ChainrunError, bool) {
	var ce *ChainrunError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf returns the code of the first ChainrunError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ""
}

// HasCode reports whether any ChainrunError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ce *ChainrunError
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Cause
	}
	return false
}

// Common error constructors for the planning and execution taxonomy

// NewUnknownNodeError reports a node name that is not declared in the workflow.
// referrer is the node whose pre list named it, or "" for a requested node.
func NewUnknownNodeError(name, referrer string) *ChainrunError {
	msg := fmt.Sprintf("unknown node: %s", name)
	if referrer != "" {
		msg = fmt.Sprintf("unknown node %s referenced by pre of %s", name, referrer)
	}
	return New(ErrCodeUnknownNode, msg).
		WithSuggestion("Run 'chainrun list' to see the declared nodes").
		WithSuggestion("Check the spelling of the node name and its pre entries")
}

// NewGraphCycleError reports a dependency cycle; path starts and ends with the same node.
func NewGraphCycleError(path []string) *ChainrunError {
	return New(ErrCodeGraphCycle, fmt.Sprintf("dependency cycle detected: %s", strings.Join(path, " -> "))).
		WithSuggestion("Remove one of the pre entries along the cycle")
}

// NewInvalidFilterError reports a matrix keep/drop pattern that does not compile.
func NewInvalidFilterError(node, filter, pattern string, cause error) *ChainrunError {
	return Wrap(ErrCodeInvalidFilter, fmt.Sprintf("invalid %s filter %q in matrix of node %s", filter, pattern, node), cause).
		WithSuggestion("Filters are regular expressions matched against indices like \"0,1,0\"")
}

// NewUndefinedArgumentError reports a template reference with no supplied value.
func NewUndefinedArgumentError(node string, task int, cause error) *ChainrunError {
	return Wrap(ErrCodeUndefinedArgument, fmt.Sprintf("undefined argument in node %s task %d", node, task), cause).
		WithSuggestion("Supply the value with -a key=value (dotted keys nest: -a db.host=localhost)")
}

// NewInvalidTemplateError reports a script that is not a valid template.
func NewInvalidTemplateError(node string, task int, cause error) *ChainrunError {
	return Wrap(ErrCodeInvalidTemplate, fmt.Sprintf("invalid script template in node %s task %d", node, task), cause)
}

// NewSpawnFailureError reports a task process that could not be started.
func NewSpawnFailureError(node, cell string, task int, cause error) *ChainrunError {
	return Wrap(ErrCodeSpawnFailure, fmt.Sprintf("could not start task %d of node %s%s", task, node, cellSuffix(cell)), cause).
		WithSuggestion("Check that the shell program exists and the working directory is valid")
}

// NewTaskFailureError reports a task process that exited unsuccessfully.
func NewTaskFailureError(node, cell string, task, exitCode int) *ChainrunError {
	return New(ErrCodeTaskFailure, fmt.Sprintf("task %d of node %s%s failed with exit code %d", task, node, cellSuffix(cell), exitCode))
}

// NewCodecError reports a plan document that could not be decoded or is malformed.
func NewCodecError(details string, cause error) *ChainrunError {
	return Wrap(ErrCodeCodecFailure, fmt.Sprintf("invalid plan document: %s", details), cause).
		WithSuggestion("Regenerate the plan with 'chainrun plan' and pass the same --format to execute")
}

// NewWorkflowNotFoundError creates a workflow file not found error
func NewWorkflowNotFoundError(path string) *ChainrunError {
	return New(ErrCodeWorkflowNotFound, fmt.Sprintf("workflow file not found: %s", path)).
		WithSuggestion("Run 'chainrun workflow init' to create a workflow").
		WithSuggestion("Point to another file with --workflow")
}

// NewWorkflowInvalidError creates a workflow validation error
func NewWorkflowInvalidError(details string, cause error) *ChainrunError {
	return Wrap(ErrCodeWorkflowInvalid, fmt.Sprintf("invalid workflow: %s", details), cause)
}

// NewWorkflowVersionError reports a workflow written for another format version.
func NewWorkflowVersionError(got, want string) *ChainrunError {
	return New(ErrCodeWorkflowVersionMismatch, fmt.Sprintf("workflow version %q is incompatible, this build reads version %q", got, want)).
		WithSuggestion(fmt.Sprintf("Set version: %q in the workflow", want))
}

// NewInvalidArgumentError creates a usage error for a malformed flag or argument.
func NewInvalidArgumentError(details string) *ChainrunError {
	return New(ErrCodeInvalidArgument, details).
		WithSuggestion("Run with --help to see all available options")
}

func cellSuffix(cell string) string {
	if cell == "" {
		return ""
	}
	return fmt.Sprintf(" (cell %s)", cell)
}

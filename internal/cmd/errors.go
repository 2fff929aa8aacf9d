package cmd

import (
	"fmt"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// usageErrorf reports a malformed flag value.
func usageErrorf(format string, args ...any) error {
	return errors.NewInvalidArgumentError(fmt.Sprintf(format, args...))
}

// parseArgs turns repeated -a key=value flags into template arguments.
func parseArgs(pairs []string) (scope.Args, error) {
	args, err := scope.ParseArgs(pairs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArgument, "invalid --arg", err).
			WithSuggestion("Pass arguments as -a key=value; dotted keys nest: -a db.host=localhost")
	}
	return args, nil
}

// nodesRequired rejects an empty node request before any file is read.
func nodesRequired(nodes []string) error {
	if len(nodes) == 0 {
		return errors.NewInvalidArgumentError("at least one node is required").
			WithSuggestion("Name nodes with -n, e.g. -n build -n test").
			WithSuggestion("Run 'chainrun list' to see the declared nodes")
	}
	return nil
}

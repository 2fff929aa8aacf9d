package scope

import (
	"fmt"
	"regexp"
	"strings"
)

// Capture selects variables from environ (KEY=VALUE pairs, as returned by
// os.Environ) whose names match pattern. An empty pattern captures nothing.
func Capture(pattern string, environ []string) (map[string]string, error) {
	out := map[string]string{}
	if pattern == "" {
		return out, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile capture pattern %q: %w", pattern, err)
	}

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if re.MatchString(k) {
			out[k] = v
		}
	}
	return out, nil
}

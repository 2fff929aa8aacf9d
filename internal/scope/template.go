package scope

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrUndefinedArgument is wrapped by Render when a script references an
// argument that was not supplied.
var ErrUndefinedArgument = stderrors.New("undefined argument")

// ErrInvalidTemplate is wrapped by Render when a script is not a valid template.
var ErrInvalidTemplate = stderrors.New("invalid template")

// Args is the nested argument tree scripts are rendered against.
// "-a db.host=x" becomes {"db": {"host": "x"}} and is referenced as {{ .db.host }}.
type Args map[string]any

// ParseArgs builds an Args tree from KEY=VALUE pairs with dotted keys.
func ParseArgs(pairs []string) (Args, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not of the form key=value", p)
		}
		values[k] = v
	}
	return NewArgs(values)
}

// NewArgs builds an Args tree from a flat map with dotted keys.
func NewArgs(values map[string]string) (Args, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := Args{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := map[string]any(root)
		for i, part := range parts {
			if part == "" {
				return nil, fmt.Errorf("argument %q has an empty path segment", key)
			}
			if i == len(parts)-1 {
				if _, exists := node[part]; exists {
					return nil, fmt.Errorf("argument %q is both a value and a namespace", key)
				}
				node[part] = values[key]
				break
			}
			next, exists := node[part]
			if !exists {
				child := map[string]any{}
				node[part] = child
				node = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("argument %q is both a value and a namespace", key)
			}
			node = child
		}
	}
	return root, nil
}

// Render expands template references in script against args. Scripts
// without template delimiters are returned unchanged.
func Render(script string, args Args) (string, error) {
	if !strings.Contains(script, "{{") {
		return script, nil
	}

	tmpl, err := template.New("script").Option("missingkey=error").Parse(script)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	if args == nil {
		args = Args{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(args)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndefinedArgument, err)
	}
	return buf.String(), nil
}

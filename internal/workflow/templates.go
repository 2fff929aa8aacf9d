package workflow

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template returns the starter workflow with the given name.
func Template(name string) ([]byte, error) {
	data, err := templateFS.ReadFile("templates/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown workflow template %q (available: %s)", name, strings.Join(TemplateNames(), ", "))
	}
	return data, nil
}

// TemplateNames lists the starter workflows.
func TemplateNames() []string {
	entries, _ := fs.ReadDir(templateFS, "templates")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

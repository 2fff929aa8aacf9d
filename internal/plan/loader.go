package plan

import (
	"fmt"
	"io"
	"os"
)

// Stdio is the path that selects stdin for LoadPlan and stdout for SavePlan.
const Stdio = "-"

// LoadPlan reads a plan from path, or from stdin when path is "-" or empty.
func LoadPlan(path string, f Format, stdin io.Reader) (*Plan, error) {
	if path == "" || path == Stdio {
		return Decode(stdin, f)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan file: %w", err)
	}
	defer file.Close()

	return Decode(file, f)
}

// SavePlan writes a plan to path, or to stdout when path is "-" or empty.
func SavePlan(p *Plan, path string, f Format, stdout io.Writer) error {
	if path == "" || path == Stdio {
		return Encode(stdout, p, f)
	}

	data, err := Marshal(p, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}
	return nil
}

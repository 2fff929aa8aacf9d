package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/chainrun/internal/errors"
)

// DefaultPath is the workflow read when --workflow is not given.
const DefaultPath = ".chainrun.yaml"

// Repository loads workflows.
type Repository interface {
	// Load reads, decodes and validates the workflow at path
	Load(path string) (*Workflow, error)
}

// FileRepository loads workflows from disk. Files ending in .hcl are decoded
// as HCL, everything else as YAML.
type FileRepository struct {
	// Environ is the caller environment exposed to HCL as env.NAME.
	Environ []string
}

// NewFileRepository creates a file based repository.
func NewFileRepository(environ []string) *FileRepository {
	return &FileRepository{Environ: environ}
}

// Load reads, decodes and validates the workflow at path.
func (r *FileRepository) Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWorkflowNotFoundError(path)
		}
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data, path, r.Environ)
}

// Parse decodes data according to the extension of filename and validates
// the result.
func Parse(data []byte, filename string, environ []string) (*Workflow, error) {
	var (
		wf  *Workflow
		err error
	)
	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		wf, err = DecodeHCL(data, filename, environ)
	} else {
		wf, err = DecodeYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// DecodeYAML decodes a YAML workflow without validating it. Unknown keys at
// any level are rejected.
func DecodeYAML(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := decodeStrict(data, &wf); err != nil {
		return nil, errors.NewWorkflowInvalidError("decode yaml", err)
	}
	wf.nameWatchRules()
	return &wf, nil
}

func (w *Workflow) nameWatchRules() {
	for name, rule := range w.Watch {
		if rule != nil {
			rule.Name = name
		}
	}
}

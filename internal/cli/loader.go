package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contractcfg/internal/harness"
	"github.com/roach88/contractcfg/internal/ir"
)

// Error code constants - unified across all CLI commands. Engine failures
// are reported with the engine's own codes (VALIDATION, LINE_NOT_FOUND, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // Input file could not be read or parsed
	ErrCodeNotFound    = "E005" // Path or contract not found
	ErrCodeCatalog     = "E006" // Catalog failed to compile
	ErrCodeWriteFailed = "E007" // Store write error
)

// TreeFile is the input of the create command: a contract header and its
// line tree, in the same shape as harness scenarios.
//
//	contract: {id: C1, pricelist_id: retail}
//	lines:
//	  - product: desk
//	    quantity: "2"
//	    options:
//	      - product: drawer
//	        option_unit_qty: "3"
type TreeFile struct {
	Contract harness.ContractDef `yaml:"contract"`
	Lines    []harness.LineNode  `yaml:"lines"`
}

// LoadTree reads a tree file with strict field validation.
func LoadTree(path string) (*TreeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}

	var tree TreeFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if tree.Contract.ID == "" {
		return nil, fmt.Errorf("invalid tree: contract.id is required")
	}
	if _, err := tree.Contract.Contract(); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	if err := harness.ValidateLines(tree.Lines); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	return &tree, nil
}

// Specs converts the tree to engine line specs.
func (t *TreeFile) Specs() []ir.LineSpec {
	specs := make([]ir.LineSpec, len(t.Lines))
	for i, n := range t.Lines {
		specs[i] = n.Spec()
	}
	return specs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

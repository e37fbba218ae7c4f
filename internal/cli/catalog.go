package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/catalog"
)

// CatalogSummary is the output of a successful catalog validation.
type CatalogSummary struct {
	Valid      bool     `json:"valid"`
	Files      int      `json:"files"`
	Products   []string `json:"products"`
	Pricelists int      `json:"pricelists"`
}

// String renders the summary for text output.
func (s CatalogSummary) String() string {
	return fmt.Sprintf("✓ Catalog valid: %d product(s), %d pricelist(s) in %d file(s)\n  %s",
		len(s.Products), s.Pricelists, s.Files, strings.Join(s.Products, ", "))
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with CUE product catalogs",
	}
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	return cmd
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Compile a catalog and report schema errors",
		Long: `Compile a CUE product catalog against the catalog schema.

Reports the first schema or reference error with its file position.

Examples:
  contractcfg catalog validate ./catalog
  contractcfg catalog validate ./catalog --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogValidate(rootOpts, args[0], cmd)
		},
	}
}

func runCatalogValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(dir); err != nil {
		return outputCatalogError(formatter, ErrCodeNotFound, fmt.Sprintf("catalog directory not found: %s", dir), nil)
	}
	files, err := FindCUEFiles(dir)
	if err != nil {
		return outputCatalogError(formatter, ErrCodeScanError, fmt.Sprintf("error scanning directory: %v", err), nil)
	}
	if len(files) == 0 {
		return outputCatalogError(formatter, ErrCodeNoFiles, fmt.Sprintf("no CUE files found in %s", dir), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)

	cat, err := catalog.Load(dir)
	if err != nil {
		var le *catalog.LoadError
		if errors.As(err, &le) {
			details := map[string]any{"kind": le.Code}
			if le.Pos.IsValid() {
				details["file"] = le.Pos.Filename()
				details["line"] = le.Pos.Line()
			}
			return outputCatalogFailure(formatter, le.Error(), details)
		}
		return outputCatalogFailure(formatter, err.Error(), nil)
	}

	summary := CatalogSummary{
		Valid:      true,
		Files:      len(files),
		Products:   []string{},
		Pricelists: cat.PricelistCount(),
	}
	for _, p := range cat.Products() {
		summary.Products = append(summary.Products, p.ID)
	}
	return formatter.Success(summary)
}

// outputCatalogError reports a command-level error (exit code 2).
func outputCatalogError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCatalogFailure reports an invalid catalog (exit code 1).
func outputCatalogFailure(formatter *OutputFormatter, message string, details any) error {
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✗ Catalog invalid")
	}
	_ = formatter.Error(ErrCodeCatalog, message, details)
	return NewExitError(ExitFailure, "catalog validation failed")
}

package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

const (
	groupContracts = "contracts"
	groupTooling   = "tooling"
)

// NewRootCommand creates the root command for the contractcfg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "contractcfg",
		Short: "contractcfg - configurable contract lines",
		Long: `Build, edit and report contract line trees.

A configurable line carries option lines whose quantities follow it.
Contracts and their lines are kept in a SQLite database (--db) and
products come from a CUE catalog (--catalog).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddGroup(
		&cobra.Group{ID: groupContracts, Title: "Contract Commands:"},
		&cobra.Group{ID: groupTooling, Title: "Tooling Commands:"},
	)
	for _, sub := range []*cobra.Command{
		NewCreateCommand(opts),
		NewShowCommand(opts),
		NewListCommand(opts),
		NewResequenceCommand(opts),
		NewSetQtyCommand(opts),
		NewRemoveCommand(opts),
		NewDeleteCommand(opts),
	} {
		sub.GroupID = groupContracts
		cmd.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{
		NewTestCommand(opts),
		NewCatalogCommand(opts),
	} {
		sub.GroupID = groupTooling
		cmd.AddCommand(sub)
	}

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

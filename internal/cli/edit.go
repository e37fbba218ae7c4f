package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/ir"
)

// EditOptions holds flags for commands that edit a stored contract.
type EditOptions struct {
	StoreOptions
	DryRun bool // apply the edit to a draft and print it without saving
}

func addEditFlags(cmd *cobra.Command, opts *EditOptions) {
	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the result without saving it")
}

// runEdit loads a contract, applies edit and saves the result. With
// --dry-run the edit runs on a draft and nothing is written.
func runEdit(opts *EditOptions, cmd *cobra.Command, contractID, op string, edit func(s *session) error) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openContract(ctx, &opts.StoreOptions, cmd, contractID)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.DryRun {
		s.engine = s.engine.Draft()
	}
	if err := edit(s); err != nil {
		return formatter.Rejected(op, err)
	}
	if opts.DryRun {
		formatter.VerboseLog("Dry run: contract %s not saved", contractID)
		return formatter.Success(buildReport(s.engine))
	}
	if err := s.save(ctx); err != nil {
		return err
	}
	return formatter.Success(buildReport(s.engine))
}

// NewResequenceCommand creates the resequence command.
func NewResequenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "resequence <contract-id>",
		Short: "Renumber the lines of a contract in tree order",
		Long: `Renumber the lines of a contract so that every main line is directly
followed by its options, in priority order.

Example:
  contractcfg resequence --db ./contracts.db C1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, cmd, args[0], "resequence", func(s *session) error {
				return s.engine.SyncSequence()
			})
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

// NewSetQtyCommand creates the set-qty command.
func NewSetQtyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "set-qty <contract-id> <line-id> <quantity>",
		Short: "Change the quantity of a line",
		Long: `Change the quantity of a line. Option quantities below it follow
according to their propagation mode and are repriced through the catalog.

Examples:
  contractcfg set-qty --db ./contracts.db --catalog ./catalog C1 <line-id> 3
  contractcfg set-qty --db ./contracts.db C1 <line-id> 2.5 --dry-run`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[2])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[2]))
			}
			return runEdit(opts, cmd, args[0], "set-qty", func(s *session) error {
				return s.engine.SetQuantity(ir.LineID(args[1]), qty)
			})
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "remove <contract-id> <line-id>",
		Short: "Remove a line and its options",
		Long: `Remove a line together with every option below it. The remaining
lines are renumbered and the parent's configuration total is updated.

Example:
  contractcfg remove --db ./contracts.db C1 <line-id>`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, cmd, args[0], "remove", func(s *session) error {
				return s.engine.RemoveLine(ir.LineID(args[1]))
			})
		},
	}

	addEditFlags(cmd, opts)
	return cmd
}

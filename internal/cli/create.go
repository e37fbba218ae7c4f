package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/forest"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	StoreOptions
	Replace bool // overwrite an existing contract
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "create <tree.yaml>",
		Short: "Create a contract from a line tree",
		Long: `Create a contract from a YAML line tree.

The tree is built in one batch: option quantities are propagated, options
are priced through the catalog and lines are sequenced in tree order before
the contract is saved with durable line ids.

Example tree:
  contract: {id: C1, name: Office refit, pricelist_id: retail}
  lines:
    - product: desk
      quantity: "2"
      options:
        - product: drawer
          option_unit_qty: "3"

Examples:
  contractcfg create --db ./contracts.db --catalog ./catalog tree.yaml
  contractcfg create --db ./contracts.db --replace tree.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the contract if it already exists")
	return cmd
}

func runCreate(opts *CreateOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	tree, err := LoadTree(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tree", err)
	}
	contract, err := tree.Contract.Contract()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tree", err)
	}

	s, cat, err := openStore(&opts.StoreOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	_, _, err = s.store.LoadContract(ctx, contract.ID)
	switch {
	case err == nil && !opts.Replace:
		return NewExitError(ExitCommandError, fmt.Sprintf("contract already exists: %s (use --replace)", contract.ID))
	case err != nil && !errors.Is(err, sql.ErrNoRows) && !opts.Replace:
		return WrapExitError(ExitCommandError, "failed to check existing contract", err)
	}

	s.engine, err = engine.New(forest.New(contract), s.engineOptions(cat)...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	if _, err := s.engine.CreateLineTree(tree.Specs()...); err != nil {
		return formatter.Rejected("create", err)
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	formatter.VerboseLog("Saved contract %s with %d line(s)", contract.ID, s.engine.Forest().Len())
	return formatter.Success(buildReport(s.engine))
}

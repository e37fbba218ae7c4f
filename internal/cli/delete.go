package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/store"
)

// DeleteResult is the output of the delete command.
type DeleteResult struct {
	Contract string `json:"contract"`
	Deleted  bool   `json:"deleted"`
}

// String renders the result as a confirmation line.
func (r DeleteResult) String() string {
	return fmt.Sprintf("✓ Contract %s deleted", r.Contract)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <contract-id>",
		Short: "Delete a stored contract",
		Long: `Delete a contract and all of its lines from a database.

Example:
  contractcfg delete --db ./contracts.db C1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runDelete(opts *StoreOptions, contractID string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	err = st.DeleteContract(context.Background(), contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("contract not found: %s", contractID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete contract", err)
	}
	return newFormatter(opts.RootOptions, cmd).Success(DeleteResult{Contract: contractID, Deleted: true})
}

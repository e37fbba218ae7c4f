package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/store"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Print the line report of a contract",
		Long: `Print the line report of a stored contract.

The forest is recomputed before printing, using the catalog when one is
given. Nothing is written back.

Examples:
  contractcfg show --db ./contracts.db C1
  contractcfg show --db ./contracts.db --catalog ./catalog C1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, opts)
	return cmd
}

func runShow(opts *StoreOptions, contractID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openContract(ctx, opts, cmd, contractID)
	if err != nil {
		return err
	}
	defer s.Close()

	return formatter.Success(buildReport(s.engine))
}

// ContractList is the output of the list command.
type ContractList struct {
	Contracts []store.ContractSummary `json:"contracts"`
}

// String renders the list as a table.
func (l ContractList) String() string {
	if len(l.Contracts) == 0 {
		return "No contracts found."
	}
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPARTNER\tLINES")
	for _, c := range l.Contracts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, c.Name, c.PartnerID, c.LineCount)
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored contracts",
		Long: `List the contracts stored in a database with their line counts.

Example:
  contractcfg list --db ./contracts.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runList(opts *StoreOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	summaries, err := st.ListContracts(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list contracts", err)
	}
	return newFormatter(opts.RootOptions, cmd).Success(ContractList{Contracts: summaries})
}

package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/contractcfg/internal/catalog"
	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/store"
)

// StoreOptions holds flags shared by commands that work on stored contracts.
type StoreOptions struct {
	*RootOptions
	Database string
	Catalog  string // CUE catalog directory (optional)

	// IDGenerator allows overriding the durable id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator forest.IDGenerator
}

// addStoreFlags registers --db (required) and --catalog.
func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "CUE catalog directory used for products and prices")
}

// newLogger builds the command logger. Engine transactions log at Info,
// so they only show up with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// session is an open store plus the engine of one contract.
type session struct {
	opts   *StoreOptions
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// openStore opens the database and the optional catalog.
func openStore(opts *StoreOptions, cmd *cobra.Command) (*session, *catalog.Catalog, error) {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	var cat *catalog.Catalog
	if opts.Catalog != "" {
		var err error
		cat, err = catalog.Load(opts.Catalog)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		logger.Debug("catalog loaded", "dir", opts.Catalog, "products", len(cat.Products()))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return &session{opts: opts, store: st, logger: logger}, cat, nil
}

// engineOptions wires the catalog as both product catalog and pricer.
func (s *session) engineOptions(cat *catalog.Catalog) []engine.Option {
	opts := []engine.Option{engine.WithLogger(s.logger)}
	if cat != nil {
		opts = append(opts, engine.WithCatalog(cat), engine.WithPricer(cat))
	}
	return opts
}

// openContract opens the store and loads a contract into an engine.
func openContract(ctx context.Context, opts *StoreOptions, cmd *cobra.Command, contractID string) (*session, error) {
	s, cat, err := openStore(opts, cmd)
	if err != nil {
		return nil, err
	}

	c, lines, err := s.store.LoadContract(ctx, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		s.Close()
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("contract not found: %s", contractID))
	}
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load contract", err)
	}

	f, err := forest.Load(c, lines)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "stored contract is inconsistent", err)
	}
	s.engine, err = engine.New(f, s.engineOptions(cat)...)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	s.logger.Debug("contract loaded", "contract", contractID, "lines", len(lines))
	return s, nil
}

// save promotes pending lines to durable ids and writes the contract back.
func (s *session) save(ctx context.Context) error {
	gen := s.opts.IDGenerator
	if gen == nil {
		gen = forest.UUIDv7Generator{}
	}
	promoted := s.engine.Promote(gen)

	c := s.engine.Contract()
	if err := s.store.SaveContract(ctx, c, s.engine.Lines()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save contract", err)
	}
	s.logger.Info("contract saved",
		"contract", c.ID,
		"lines", s.engine.Forest().Len(),
		"promoted", len(promoted),
	)
	return nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

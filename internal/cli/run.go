package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/logger"
	"github.com/roach88/nlq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Driver  string // overrides database.driver
	DSN     string // overrides database.dsn
	MaxRows int
}

// RunOutput is the payload of a successful run.
type RunOutput struct {
	SQL       string   `json:"sql"`
	Params    []any    `json:"params"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// RenderText prints the result set as a table.
func (o *RunOutput) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range o.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range o.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v == nil {
				v = "NULL"
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	suffix := ""
	if o.Truncated {
		suffix = " (truncated)"
	}
	_, err := fmt.Fprintf(w, "(%d rows%s)\n", len(o.Rows), suffix)
	return err
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <request...>",
		Short: "Compile a request and execute it against a database",
		Long: `Compile a request and execute the SQL against a database.

The SQL is rendered in the dialect of the database driver (sqlite3 or
pgx), regardless of sql.dialect. Driver and DSN default to the
[database] section of the config file.

Examples:
  nlq run --dsn ./reports.db alle stornierten Verträge
  nlq run --driver pgx --dsn postgres://localhost/reports --max-rows 50 offene Schäden`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3 or pgx (default from config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database connection string (default from config)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 1000, "stop reading after this many rows (0: unlimited)")

	return cmd
}

func runQuery(opts *RunOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	text, err := requestText(args, cmd.InOrStdin())
	if err != nil {
		return f.Fail(err, ErrCodeUsage, ExitCommandError, "")
	}

	driver, dsn := opts.Driver, opts.DSN
	if driver == "" {
		driver = opts.Config.Database.Driver
	}
	if dsn == "" {
		dsn = opts.Config.Database.DSN
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, driver, dsn, store.WithMaxRows(opts.MaxRows))
	if err != nil {
		return f.Fail(err, ErrCodeDatabase, ExitCommandError, "")
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Logger.Warnw("close database", "error", cerr)
		}
	}()

	eng, err := opts.newEngine(st.Dialect().Name)
	if err != nil {
		return f.Fail(err, ErrCodeConfig, ExitCommandError, "")
	}
	res, err := eng.Compile(text)
	if err != nil {
		return f.Fail(err, ErrCodeInternal, ExitCommandError, engine.TraceID(err))
	}
	f.VerboseLog("trace %s: %s", res.TraceID, res.Statement.SQL)

	if timeout := opts.Config.Database.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := st.Execute(ctx, res.Statement)
	if opts.Collector != nil {
		opts.Collector.ObserveExecute(time.Since(start), err)
	}
	if err != nil {
		return f.Fail(err, ErrCodeDatabase, ExitCommandError, res.TraceID)
	}
	logger.Logger.Debugw("executed", "trace_id", res.TraceID, "rows", rows.Len(), "truncated", rows.Truncated)

	return f.Success(&RunOutput{
		SQL:       res.Statement.SQL,
		Params:    compileOutput(res).Params,
		Columns:   rows.Columns,
		Rows:      rows.Values,
		Truncated: rows.Truncated,
	}, res.TraceID)
}

// commandContext returns cmd's context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

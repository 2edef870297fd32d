package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/qres/internal/datasource"
	"github.com/aidanlsb/qres/internal/render"
	"github.com/aidanlsb/qres/internal/results"
	"github.com/aidanlsb/qres/internal/store"
	"github.com/aidanlsb/qres/internal/ui"
)

var (
	runFile    string
	runRaw     bool
	runMaxRows int
	runTimeout time.Duration
)

// stdin is where SQL is read from when no argument or file is given.
var stdin io.Reader = os.Stdin

var runCmd = &cobra.Command{
	Use:   "run [sql]",
	Short: "Run SQL that references saved query results",
	Long: `Runs SQL in which query_<id> placeholders stand for the results of saved queries.

The SQL comes from the argument, from --file, or from stdin.

Examples:
  qres run "SELECT * FROM query_1 WHERE total > 100"
  qres run "SELECT c.name, o.total FROM query_1 c JOIN query_2('{\"days\": 7}') o ON o.customer_id = c.id"
  qres run --file report.sql --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, err := readSQL(args, runFile)
		if err != nil {
			return handleError(ErrMissingArgument, err, "Pass SQL as an argument, with --file, or on stdin")
		}

		user, err := currentUser()
		if err != nil {
			return handleError(ErrUserNotFound, err, "Add the user under [users] in the config")
		}
		st, err := openStore()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check the query store file")
		}
		reg, err := openRegistry()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check [sources] in the config")
		}
		defer reg.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		runner := newQueryRunner(st, reg)

		var spinner *ui.Spinner
		if !isJSONOutput() && !runRaw {
			spinner = ui.NewSpinner("Running query")
			spinner.Start()
		}
		start := time.Now()
		res, err := runner.Run(ctx, sql, user)
		elapsed := time.Since(start).Milliseconds()
		if spinner != nil {
			spinner.Stop()
		}

		switch {
		case errors.Is(err, results.ErrNoData):
			return outputNotice(WarnNoData, results.NoDataMessage)
		case errors.Is(err, results.ErrCancelled) && errors.Is(ctx.Err(), context.DeadlineExceeded):
			return handleErrorMsg(ErrQueryTimeout,
				fmt.Sprintf("query did not finish within %s", runTimeout), "Raise --timeout or narrow the query")
		case errors.Is(err, results.ErrCancelled):
			return outputNotice(WarnCancelled, results.CancelledMessage)
		case err != nil:
			code, suggestion := runErrorCode(err)
			return handleError(code, err, suggestion)
		}

		if runRaw {
			data, err := res.MarshalJSON()
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			fmt.Fprintln(stdout, string(data))
			return nil
		}

		if isJSONOutput() {
			outputSuccess(res, &Meta{Count: len(res.Rows), QueryTimeMs: elapsed})
			return nil
		}

		display := ui.NewDisplayContext(stdout)
		tbl := ui.NewResultTable(display, res)
		tbl.SetMaxRows(runMaxRows)
		fmt.Fprintln(stdout, tbl.Render())
		summary := ui.Count(len(res.Rows), "row", "rows")
		if hidden := tbl.Hidden(); hidden > 0 {
			summary += fmt.Sprintf(", %d not shown (use --max-rows 0 or --json)", hidden)
		}
		fmt.Fprintln(stdout, ui.Hint(fmt.Sprintf("%s in %dms", summary, elapsed)))
		return nil
	},
}

// newQueryRunner wires the runner to the store, the configured sources and
// the template renderer.
func newQueryRunner(st *store.Store, reg *datasource.Registry) *results.Runner {
	dispatch := results.DispatcherFunc(func(source string) (results.QueryRunner, error) {
		return reg.Runner(source)
	})
	return results.NewRunner(st, dispatch, render.Renderer{}, results.WithLogger(newLogger()))
}

// readSQL returns the query text from args, file or stdin, in that order.
func readSQL(args []string, file string) (string, error) {
	var sql string
	switch {
	case len(args) > 0:
		sql = args[0]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		sql = string(data)
	case !stdinIsTerminal():
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		sql = string(data)
	}

	if strings.TrimSpace(sql) == "" {
		return "", fmt.Errorf("no SQL given")
	}
	return sql, nil
}

func stdinIsTerminal() bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runErrorCode maps a run failure to its error code and a suggestion.
func runErrorCode(err error) (string, string) {
	var (
		extractErr  *results.ExtractionError
		notFoundErr *results.NotFoundError
		childErr    *results.ChildQueryExecutionError
		emptyErr    *results.EmptyResultError
	)
	switch {
	case errors.As(err, &extractErr):
		return ErrExtractionFailed, `Inline parameters must be one single-quoted JSON object, e.g. query_1('{"days": 7}')`
	case errors.As(err, &notFoundErr):
		return ErrQueryNotFound, "Run 'qres queries list' to see saved queries you can use"
	case errors.As(err, &childErr):
		return ErrChildQueryFailed, fmt.Sprintf("Run 'qres queries show %d' to inspect the saved query", childErr.QueryID)
	case errors.As(err, &emptyErr):
		return ErrEmptyResult, "The referenced query must return at least one column"
	}
	return ErrDatabaseError, ""
}

// outputNotice reports an outcome that is not a failure, such as a statement
// without results or a cancelled run.
func outputNotice(code, message string) error {
	if isJSONOutput() {
		outputSuccessWithWarnings(map[string]interface{}{"message": message}, []Warning{{Code: code, Message: message}}, nil)
		return nil
	}
	fmt.Fprintln(stderr, ui.Info(message))
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read SQL from a file")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "Print only the {columns, rows} result as JSON")
	runCmd.Flags().IntVar(&runMaxRows, "max-rows", 100, "Maximum rows to print in table output (0 for all)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Cancel the run after this long (e.g. 30s)")
	rootCmd.AddCommand(runCmd)
}

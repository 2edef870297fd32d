package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/qres/internal/results"
	"github.com/aidanlsb/qres/internal/ui"
)

var (
	extractFile    string
	extractRewrite bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [sql]",
	Short: "Show the query references found in SQL without running anything",
	Long: `Parses SQL and lists every query_<id> reference, its inline parameters and
the table name it would be rewritten to. Nothing is executed.

Examples:
  qres extract "SELECT * FROM query_1 JOIN query_2('{\"x\": 1}') USING (id)"
  qres extract --rewrite --file report.sql`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, err := readSQL(args, extractFile)
		if err != nil {
			return handleError(ErrMissingArgument, err, "Pass SQL as an argument, with --file, or on stdin")
		}

		refs, err := results.Extract(sql)
		if err != nil {
			code, suggestion := runErrorCode(err)
			return handleError(code, err, suggestion)
		}

		var rewritten string
		if extractRewrite {
			rewritten, err = results.Rewrite(sql, refs)
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
		}

		if isJSONOutput() {
			data := map[string]interface{}{"references": refs}
			if extractRewrite {
				data["sql"] = rewritten
			}
			outputSuccess(data, &Meta{Count: len(refs)})
			return nil
		}

		if len(refs) == 0 {
			fmt.Fprintln(stdout, ui.Info("No query references found"))
			return nil
		}

		rows := make([][]string, len(refs))
		for i, ref := range refs {
			params := "-"
			if len(ref.Params) > 0 {
				b, _ := json.Marshal(ref.Params)
				params = string(b)
			}
			rows[i] = []string{strconv.Itoa(i + 1), fmt.Sprintf("query_%d", ref.QueryID), params, ref.Table}
		}
		fmt.Fprintln(stdout, ui.SimpleTable([]string{"#", "query", "params", "table"}, rows))

		if extractRewrite {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, ui.Header("Rewritten SQL"))
			fmt.Fprintln(stdout, rewritten)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Read SQL from a file")
	extractCmd.Flags().BoolVar(&extractRewrite, "rewrite", false, "Also print the SQL with references replaced by table names")
	rootCmd.AddCommand(extractCmd)
}

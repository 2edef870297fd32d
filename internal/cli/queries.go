package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/render"
	"github.com/aidanlsb/qres/internal/shellquote"
	"github.com/aidanlsb/qres/internal/store"
	"github.com/aidanlsb/qres/internal/ui"
)

var queriesCmd = &cobra.Command{
	Use:     "queries",
	Aliases: []string{"query", "q"},
	Short:   "Manage saved queries",
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries you can reference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, user, err := storeAndUser()
		if err != nil {
			return err
		}

		var visible []*model.Query
		for _, q := range st.List() {
			if q.AccessibleBy(user) {
				visible = append(visible, q)
			}
		}

		if isJSONOutput() {
			items := make([]map[string]interface{}, len(visible))
			for i, q := range visible {
				items[i] = map[string]interface{}{
					"id":          q.ID,
					"name":        q.Name,
					"slug":        q.Slug(),
					"placeholder": q.Placeholder(),
					"data_source": q.DataSource,
					"parameters":  q.DefaultParams(),
					"summary":     ui.MarkdownSummary(q.Description, 0),
				}
			}
			outputSuccess(map[string]interface{}{"queries": items}, &Meta{Count: len(items)})
			return nil
		}

		if len(visible) == 0 {
			fmt.Fprintln(stdout, ui.Info("No saved queries"))
			fmt.Fprintln(stdout, ui.Hint("Add one with 'qres queries add --name <name> --source <source> \"SELECT ...\"'"))
			return nil
		}

		rows := make([][]string, len(visible))
		for i, q := range visible {
			rows[i] = []string{q.Placeholder(), q.Name, q.DataSource, paramNames(q), ui.MarkdownSummary(q.Description, 60)}
		}
		fmt.Fprintln(stdout, ui.SimpleTable([]string{"reference", "name", "source", "params", "description"}, rows))
		fmt.Fprintln(stdout, ui.Hint(ui.Count(len(visible), "query", "queries")))
		return nil
	},
}

var queriesShowCmd = &cobra.Command{
	Use:   "show <id|query_<id>|name>",
	Short: "Show a saved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, user, err := storeAndUser()
		if err != nil {
			return err
		}

		q, err := st.Lookup(args[0])
		if err == nil && !q.AccessibleBy(user) {
			err = fmt.Errorf("query %s: %w", args[0], store.ErrQueryNotFound)
		}
		if err != nil {
			return handleError(ErrQueryNotFound, err, "Run 'qres queries list' to see saved queries")
		}

		if isJSONOutput() {
			outputSuccess(q, nil)
			return nil
		}

		fmt.Fprintf(stdout, "%s %s\n", ui.Name(q.Placeholder()), ui.Header(q.Name))
		fmt.Fprintln(stdout, ui.Hint("source: "+q.DataSource))
		if len(q.Groups) > 0 {
			fmt.Fprintln(stdout, ui.Hint("groups: "+strings.Join(q.Groups, ", ")))
		}
		if q.Description != "" {
			rendered, err := ui.RenderMarkdown(q.Description, ui.NewDisplayContext(stdout).TermWidth)
			if err != nil {
				rendered = q.Description + "\n"
			}
			fmt.Fprint(stdout, rendered)
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, strings.TrimRight(q.Query, "\n"))

		if len(q.Parameters) > 0 {
			fmt.Fprintln(stdout)
			rows := make([][]string, len(q.Parameters))
			for i, p := range q.Parameters {
				rows[i] = []string{p.Name, p.Type, render.FormatValue(p.Value)}
			}
			fmt.Fprintln(stdout, ui.SimpleTable([]string{"parameter", "type", "default"}, rows))
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, ui.Hint(shellquote.Command("qres", "run", exampleSQL(q))))
		return nil
	},
}

var (
	addName        string
	addSource      string
	addDescription string
	addFile        string
	addParams      []string
	addGroups      []string
)

var queriesAddCmd = &cobra.Command{
	Use:   "add [sql]",
	Short: "Save a query so other SQL can reference it",
	Long: `Saves a query to the query store. Parameters are referenced in the SQL as
{{name}} and declared with --param name=default.

Examples:
  qres queries add --name "Recent orders" --source warehouse \
    --param days=7 "SELECT * FROM orders WHERE created_at > now() - interval '{{days}} days'"
  qres queries add --name Customers --source warehouse --file customers.sql`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, err := readSQL(args, addFile)
		if err != nil {
			return handleError(ErrMissingArgument, err, "Pass the query SQL as an argument, with --file, or on stdin")
		}
		if strings.TrimSpace(addName) == "" {
			return handleErrorMsg(ErrMissingArgument, "--name is required", "")
		}
		if strings.TrimSpace(addSource) == "" {
			return handleErrorMsg(ErrMissingArgument, "--source is required", "Run 'qres sources list' to see configured sources")
		}
		if _, ok := getConfig().Sources[addSource]; !ok {
			return handleErrorMsg(ErrDataSourceNotFound,
				fmt.Sprintf("data source %q is not configured", addSource), "Run 'qres sources list' to see configured sources")
		}

		params, err := parseParamFlags(addParams)
		if err != nil {
			return handleError(ErrInvalidInput, err, "Use --param name=value")
		}

		q := &model.Query{
			Name:        strings.TrimSpace(addName),
			Description: addDescription,
			DataSource:  addSource,
			Query:       sql,
			Parameters:  params,
			Groups:      addGroups,
		}
		if _, err := render.Render(q.Query, q.DefaultParams()); err != nil {
			return handleError(ErrQueryInvalid, err, "Check the {{...}} placeholders in the query")
		}

		st, err := openStore()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check the query store file")
		}
		if err := st.Add(q); err != nil {
			if errors.Is(err, store.ErrDuplicateName) {
				return handleError(ErrDuplicateName, err, "Choose a different --name")
			}
			return handleError(ErrQueryInvalid, err, "")
		}
		if err := st.Save(); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(q, nil)
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("Saved %s as %s", q.Name, ui.Name(q.Placeholder())))
		return nil
	},
}

var queriesRemoveCmd = &cobra.Command{
	Use:     "remove <id|query_<id>|name>",
	Aliases: []string{"rm"},
	Short:   "Remove a saved query",
	Long: `Removes a saved query from the query store. SQL that still references it
will fail with QUERY_NOT_FOUND.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check the query store file")
		}
		q, err := st.Lookup(args[0])
		if err != nil {
			return handleError(ErrQueryNotFound, err, "Run 'qres queries list' to see saved queries")
		}
		if _, err := st.Remove(q.ID); err != nil {
			return handleError(ErrQueryNotFound, err, "")
		}
		if err := st.Save(); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"removed": q.Placeholder(), "name": q.Name}, nil)
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("Removed %s (%s)", q.Name, q.Placeholder()))
		return nil
	},
}

// storeAndUser loads the query store and resolves the current user,
// reporting failures in the active output mode.
func storeAndUser() (*store.Store, *model.User, error) {
	user, err := currentUser()
	if err != nil {
		return nil, nil, handleError(ErrUserNotFound, err, "Add the user under [users] in the config")
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, handleError(ErrConfigInvalid, err, "Check the query store file")
	}
	return st, user, nil
}

// parseParamFlags turns name=value pairs into declared parameters. Values are
// parsed as YAML scalars, so numbers and booleans keep their type.
func parseParamFlags(pairs []string) ([]model.Parameter, error) {
	var params []model.Parameter
	seen := make(map[string]bool)
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q", pair)
		}
		if seen[name] {
			return nil, fmt.Errorf("parameter %q given twice", name)
		}
		seen[name] = true

		var value interface{}
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		if _, isMap := value.(map[string]interface{}); isMap {
			value = raw
		}
		params = append(params, model.Parameter{Name: name, Type: paramType(value), Value: value})
	}
	return params, nil
}

func paramType(v interface{}) string {
	switch v.(type) {
	case int, int64, float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "list"
	case nil:
		return ""
	}
	return "text"
}

// exampleSQL selects from q, passing its declared defaults inline.
func exampleSQL(q *model.Query) string {
	if len(q.Parameters) == 0 {
		return "SELECT * FROM " + q.Placeholder()
	}
	params, err := json.Marshal(q.DefaultParams())
	if err != nil {
		return "SELECT * FROM " + q.Placeholder()
	}
	return fmt.Sprintf("SELECT * FROM %s('%s')", q.Placeholder(), strings.ReplaceAll(string(params), "'", "''"))
}

func paramNames(q *model.Query) string {
	if len(q.Parameters) == 0 {
		return "-"
	}
	names := make([]string, len(q.Parameters))
	for i, p := range q.Parameters {
		names[i] = p.Name + "=" + render.FormatValue(p.Value)
	}
	return strings.Join(names, " ")
}

func init() {
	queriesAddCmd.Flags().StringVar(&addName, "name", "", "Query name (required)")
	queriesAddCmd.Flags().StringVar(&addSource, "source", "", "Data source the query runs against (required)")
	queriesAddCmd.Flags().StringVar(&addDescription, "description", "", "Markdown description")
	queriesAddCmd.Flags().StringVarP(&addFile, "file", "f", "", "Read the query SQL from a file")
	queriesAddCmd.Flags().StringArrayVar(&addParams, "param", nil, "Declare a parameter with its default (name=value, repeatable)")
	queriesAddCmd.Flags().StringSliceVar(&addGroups, "group", nil, "Restrict the query to these groups")

	queriesCmd.AddCommand(queriesListCmd, queriesShowCmd, queriesAddCmd, queriesRemoveCmd)
	rootCmd.AddCommand(queriesCmd)
}

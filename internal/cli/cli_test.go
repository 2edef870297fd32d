package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/results"
	"github.com/aidanlsb/qres/internal/testutil"
)

const customersSeed = `
	CREATE TABLE customers (id INTEGER, name TEXT, spent REAL);
	INSERT INTO customers VALUES (1, 'ada', 20.0), (2, 'bob', 5.5), (3, 'cy', 12.25);
`

const customersQueries = `queries:
  - id: 1
    name: Customers
    data_source: shop
    query: SELECT id, name, spent FROM customers
  - id: 2
    name: Big spenders
    data_source: shop
    query: SELECT id, name FROM customers WHERE spent >= {{min}}
    parameters:
      - name: min
        value: 10
  - id: 3
    name: Finance only
    data_source: shop
    query: SELECT 1 AS n
    groups: [finance]
`

type cliResponse struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []Warning       `json:"warnings"`
	Meta     *Meta           `json:"meta"`
}

func shopWorkspace(t *testing.T) *testutil.TestWorkspace {
	t.Helper()
	return testutil.NewTestWorkspace(t).
		WithSQLiteSource("shop", customersSeed).
		WithUser("analyst", "sales").
		WithDefaultUser("analyst").
		WithQueries(customersQueries).
		Build()
}

// resetFlags restores every flag to its default so commands can run more than
// once in a test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCLI runs the root command in process and returns what it wrote to
// stdout and stderr.
func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	oldStdout, oldStderr, oldStdin := stdout, stderr, stdin
	stdout, stderr, stdin = &out, &errOut, strings.NewReader("")
	t.Cleanup(func() {
		stdout, stderr, stdin = oldStdout, oldStderr, oldStdin
		cfg = nil
	})

	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func executeJSON(t *testing.T, ws *testutil.TestWorkspace, args ...string) (cliResponse, error) {
	t.Helper()
	full := append([]string{"--config", ws.ConfigPath(), "--json"}, args...)
	out, _, err := executeCLI(t, full...)

	var resp cliResponse
	if jsonErr := json.Unmarshal([]byte(out), &resp); jsonErr != nil {
		t.Fatalf("output is not a JSON response: %v\n%s", jsonErr, out)
	}
	return resp, err
}

func TestRunCommandJSON(t *testing.T) {
	ws := shopWorkspace(t)

	resp, err := executeJSON(t, ws, "run", "SELECT c.name, c.spent FROM query_1 c JOIN query_2 b ON b.id = c.id ORDER BY c.id")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp.Error)
	}
	if resp.Meta == nil || resp.Meta.Count != 2 {
		t.Errorf("meta = %+v, want count 2", resp.Meta)
	}

	var data struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Columns) != 2 || data.Columns[0].Type != "string" || data.Columns[1].Type != "float" {
		t.Errorf("columns = %+v", data.Columns)
	}
	if len(data.Rows) != 2 || data.Rows[0]["name"] != "ada" || data.Rows[1]["name"] != "cy" {
		t.Errorf("rows = %+v", data.Rows)
	}
}

func TestRunCommandInlineParams(t *testing.T) {
	ws := shopWorkspace(t)

	resp, err := executeJSON(t, ws, "run", `SELECT name FROM query_2('{"min": 1}') ORDER BY name`)
	if err != nil || !resp.OK {
		t.Fatalf("run failed: %v %+v", err, resp.Error)
	}
	var data struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Rows) != 3 {
		t.Errorf("got %d rows, want 3", len(data.Rows))
	}
}

func TestRunCommandRaw(t *testing.T) {
	ws := shopWorkspace(t)

	out, _, err := executeCLI(t, "--config", ws.ConfigPath(), "run", "--raw", "SELECT name FROM query_1 WHERE id < 3 ORDER BY name")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := `{"columns":[{"name":"name","friendly_name":"name","type":"string"}],"rows":[{"name":"ada"},{"name":"bob"}]}` + "\n"
	if out != want {
		t.Errorf("raw output = %q, want %q", out, want)
	}
}

func TestRunCommandText(t *testing.T) {
	ws := shopWorkspace(t)

	out, _, err := executeCLI(t, "--config", ws.ConfigPath(), "run", "SELECT name FROM query_1 ORDER BY name")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"ada", "bob", "cy", "3 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandErrors(t *testing.T) {
	ws := shopWorkspace(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown query", []string{"run", "SELECT * FROM query_99"}, ErrQueryNotFound},
		{"no access", []string{"run", "SELECT * FROM query_3"}, ErrQueryNotFound},
		{"bad inline params", []string{"run", "SELECT * FROM query_1('not json')"}, ErrExtractionFailed},
		{"bad composite sql", []string{"run", "SELECT nope FROM query_1"}, ErrDatabaseError},
		{"missing sql", []string{"run"}, ErrMissingArgument},
		{"unknown user", []string{"--user", "mallory", "run", "SELECT 1"}, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := executeJSON(t, ws, tt.args...)
			if !errors.Is(err, errReported) {
				t.Errorf("err = %v, want errReported", err)
			}
			if resp.OK || resp.Error == nil {
				t.Fatalf("expected error response, got %+v", resp)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", resp.Error.Code, tt.code, resp.Error.Message)
			}
		})
	}
}

func TestRunCommandChildFailure(t *testing.T) {
	ws := testutil.NewTestWorkspace(t).
		WithSQLiteSource("shop", customersSeed).
		WithQueries(`queries:
  - id: 1
    name: Broken
    data_source: shop
    query: SELECT missing_column FROM customers
`).
		Build()

	resp, err := executeJSON(t, ws, "run", "SELECT * FROM query_1")
	if !errors.Is(err, errReported) {
		t.Errorf("err = %v, want errReported", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrChildQueryFailed {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrChildQueryFailed)
	}
	if !strings.Contains(resp.Error.Message, "query id 1") {
		t.Errorf("message %q does not name the query", resp.Error.Message)
	}
}

func TestRunCommandNoData(t *testing.T) {
	ws := shopWorkspace(t)

	resp, err := executeJSON(t, ws, "run", "CREATE TABLE scratch (a)")
	if err != nil {
		t.Fatalf("no data should not be an error: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp.Error)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != WarnNoData || resp.Warnings[0].Message != results.NoDataMessage {
		t.Errorf("warnings = %+v", resp.Warnings)
	}

	_, errOut, err := executeCLI(t, "--config", ws.ConfigPath(), "run", "CREATE TABLE scratch (a)")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, results.NoDataMessage) {
		t.Errorf("stderr = %q, want the no data notice", errOut)
	}
}

func TestRunCommandReadsFile(t *testing.T) {
	ws := shopWorkspace(t)
	path := filepath.Join(ws.Dir, "report.sql")
	if err := os.WriteFile(path, []byte("SELECT count(*) AS n FROM query_1"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := executeJSON(t, ws, "run", "--file", path)
	if err != nil || !resp.OK {
		t.Fatalf("run failed: %v %+v", err, resp.Error)
	}
	var data struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Rows) != 1 || data.Rows[0]["n"] != float64(3) {
		t.Errorf("rows = %+v", data.Rows)
	}
}

func TestTextModeErrorIsReturned(t *testing.T) {
	ws := shopWorkspace(t)

	_, _, err := executeCLI(t, "--config", ws.ConfigPath(), "run", "SELECT * FROM query_99")
	if err == nil || errors.Is(err, errReported) {
		t.Fatalf("err = %v, want a plain error", err)
	}
	if !strings.Contains(err.Error(), "query 99 not found") {
		t.Errorf("err = %v", err)
	}
}

func TestExtractCommand(t *testing.T) {
	resp, err := executeJSON(t, shopWorkspace(t), "extract", "--rewrite", `SELECT * FROM query_1 JOIN query_2('{"min": 5}') USING (id)`)
	if err != nil || !resp.OK {
		t.Fatalf("extract failed: %v %+v", err, resp.Error)
	}

	var data struct {
		References []results.Reference `json:"references"`
		SQL        string              `json:"sql"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.References) != 2 {
		t.Fatalf("got %d references, want 2", len(data.References))
	}
	if data.References[0].QueryID != 1 || data.References[1].QueryID != 2 {
		t.Errorf("references = %+v", data.References)
	}
	if strings.Contains(data.SQL, "query_") {
		t.Errorf("rewritten SQL still has placeholders: %s", data.SQL)
	}
	for _, ref := range data.References {
		if !strings.Contains(data.SQL, ref.Table) {
			t.Errorf("rewritten SQL missing %s: %s", ref.Table, data.SQL)
		}
	}
}

func TestQueriesCommands(t *testing.T) {
	ws := testutil.NewTestWorkspace(t).
		WithSQLiteSource("shop", customersSeed).
		Build()

	resp, err := executeJSON(t, ws, "queries", "add",
		"--name", "Recent spenders", "--source", "shop", "--param", "min=10",
		"SELECT name FROM customers WHERE spent >= {{min}}")
	if err != nil || !resp.OK {
		t.Fatalf("add failed: %v %+v", err, resp.Error)
	}
	ws.AssertFileContains("queries.yaml", "Recent spenders")

	resp, err = executeJSON(t, ws, "queries", "add", "--name", "Recent Spenders", "--source", "shop", "SELECT 1")
	if !errors.Is(err, errReported) || resp.Error == nil || resp.Error.Code != ErrDuplicateName {
		t.Errorf("duplicate add = %v %+v", err, resp.Error)
	}

	resp, err = executeJSON(t, ws, "queries", "add", "--name", "Elsewhere", "--source", "nope", "SELECT 1")
	if !errors.Is(err, errReported) || resp.Error == nil || resp.Error.Code != ErrDataSourceNotFound {
		t.Errorf("unknown source add = %v %+v", err, resp.Error)
	}

	resp, err = executeJSON(t, ws, "queries", "list")
	if err != nil || !resp.OK || resp.Meta == nil || resp.Meta.Count != 1 {
		t.Fatalf("list = %v %+v %+v", err, resp.Error, resp.Meta)
	}

	resp, err = executeJSON(t, ws, "queries", "show", "recent-spenders")
	if err != nil || !resp.OK {
		t.Fatalf("show failed: %v %+v", err, resp.Error)
	}
	if !strings.Contains(string(resp.Data), `"id": 1`) && !strings.Contains(string(resp.Data), `"id":1`) {
		t.Errorf("show data = %s", resp.Data)
	}

	resp, err = executeJSON(t, ws, "run", "SELECT name FROM query_1 ORDER BY name")
	if err != nil || !resp.OK {
		t.Fatalf("run of saved query failed: %v %+v", err, resp.Error)
	}
	if !strings.Contains(string(resp.Data), "ada") || strings.Contains(string(resp.Data), "bob") {
		t.Errorf("run data = %s", resp.Data)
	}

	resp, _ = executeJSON(t, ws, "queries", "show", "42")
	if resp.Error == nil || resp.Error.Code != ErrQueryNotFound {
		t.Errorf("show unknown = %+v", resp.Error)
	}

	resp, err = executeJSON(t, ws, "queries", "remove", "query_1")
	if err != nil || !resp.OK {
		t.Fatalf("remove failed: %v %+v", err, resp.Error)
	}
	resp, _ = executeJSON(t, ws, "run", "SELECT * FROM query_1")
	if resp.Error == nil || resp.Error.Code != ErrQueryNotFound {
		t.Errorf("run after remove = %+v", resp.Error)
	}
}

func TestQueriesListHidesInaccessible(t *testing.T) {
	resp, err := executeJSON(t, shopWorkspace(t), "queries", "list")
	if err != nil || !resp.OK {
		t.Fatalf("list failed: %v %+v", err, resp.Error)
	}
	if resp.Meta == nil || resp.Meta.Count != 2 {
		t.Errorf("meta = %+v, want the two unrestricted queries", resp.Meta)
	}
}

func TestSourcesCommands(t *testing.T) {
	ws := shopWorkspace(t)

	resp, err := executeJSON(t, ws, "sources", "list")
	if err != nil || !resp.OK {
		t.Fatalf("list failed: %v %+v", err, resp.Error)
	}
	if !strings.Contains(string(resp.Data), `"shop"`) || strings.Contains(string(resp.Data), ws.SourcePath("shop")) {
		t.Errorf("sources data = %s", resp.Data)
	}

	resp, err = executeJSON(t, ws, "sources", "check")
	if err != nil || !resp.OK {
		t.Fatalf("check failed: %v %+v", err, resp.Error)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qres", "config.toml")

	out, _, err := executeCLI(t, "--config", path, "--json", "init")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, `"config_created": true`) || !strings.Contains(out, `"store_created": true`) {
		t.Errorf("output = %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "qres", "queries.yaml")); err != nil {
		t.Errorf("query store not created: %v", err)
	}

	out, _, err = executeCLI(t, "--config", path, "--json", "init")
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if !strings.Contains(out, `"config_created": false`) {
		t.Errorf("second init output = %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "qres ") || !strings.Contains(out, "engine: sqlite ") {
		t.Errorf("version output = %q", out)
	}
}

func TestReadSQL(t *testing.T) {
	old := stdin
	t.Cleanup(func() { stdin = old })

	path := filepath.Join(t.TempDir(), "q.sql")
	if err := os.WriteFile(path, []byte("SELECT 2"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "argument wins", args: []string{"SELECT 1"}, file: path, stdin: "SELECT 3", want: "SELECT 1"},
		{name: "file", file: path, stdin: "SELECT 3", want: "SELECT 2"},
		{name: "stdin", stdin: "SELECT 3", want: "SELECT 3"},
		{name: "blank", stdin: "  \n", wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "nope.sql"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdin = strings.NewReader(tt.stdin)
			got, err := readSQL(tt.args, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Errorf("readSQL() = %q, want error", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("readSQL() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestParseParamFlags(t *testing.T) {
	params, err := parseParamFlags([]string{"days=7", "rate=0.5", "active=true", "status=open", "tags=[a, b]", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		name string
		typ  string
	}{
		{"days", "number"}, {"rate", "number"}, {"active", "boolean"}, {"status", "text"}, {"tags", "list"}, {"empty", ""},
	}
	if len(params) != len(want) {
		t.Fatalf("got %d params, want %d", len(params), len(want))
	}
	for i, w := range want {
		if params[i].Name != w.name || params[i].Type != w.typ {
			t.Errorf("param %d = %+v, want %s (%s)", i, params[i], w.name, w.typ)
		}
	}
	if params[0].Value != 7 {
		t.Errorf("days = %#v, want 7", params[0].Value)
	}

	for _, bad := range [][]string{{"novalue"}, {"=1"}, {"a=1", "a=2"}} {
		if _, err := parseParamFlags(bad); err == nil {
			t.Errorf("parseParamFlags(%q) succeeded, want error", bad)
		}
	}
}

func TestRunErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{&results.ExtractionError{Msg: "bad"}, ErrExtractionFailed},
		{&results.NotFoundError{QueryID: 4}, ErrQueryNotFound},
		{&results.ChildQueryExecutionError{QueryID: 4, Err: errors.New("boom")}, ErrChildQueryFailed},
		{&results.EmptyResultError{QueryID: 4}, ErrEmptyResult},
		{errors.New("no such column: x"), ErrDatabaseError},
	}
	for _, tt := range tests {
		if code, _ := runErrorCode(tt.err); code != tt.code {
			t.Errorf("runErrorCode(%v) = %s, want %s", tt.err, code, tt.code)
		}
	}
}

func TestExampleSQL(t *testing.T) {
	q := &model.Query{ID: 2, Parameters: []model.Parameter{{Name: "min", Value: 10}}}
	got := exampleSQL(q)
	want := `SELECT * FROM query_2('{"min":10}')`
	if got != want {
		t.Errorf("exampleSQL() = %q, want %q", got, want)
	}

	refs, err := results.Extract(got)
	if err != nil || len(refs) != 1 || refs[0].QueryID != 2 {
		t.Fatalf("example does not extract: %v %+v", err, refs)
	}
	if refs[0].Params["min"] != json.Number("10") {
		t.Errorf("params = %#v", refs[0].Params)
	}

	if got := exampleSQL(&model.Query{ID: 5}); got != "SELECT * FROM query_5" {
		t.Errorf("exampleSQL() = %q", got)
	}
}

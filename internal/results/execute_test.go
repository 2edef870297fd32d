package results

import (
	"context"
	"errors"
	"testing"

	"github.com/aidanlsb/qres/internal/resultset"
)

func TestExecute(t *testing.T) {
	eng := openEngine(t)
	ctx := context.Background()

	res, err := Execute(ctx, eng, "SELECT 1 AS n, 'a' AS s UNION ALL SELECT 2.5, 'b'")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Columns[0].Type != resultset.TypeString {
		t.Errorf("n type = %q, want string after integer/float conflict", res.Columns[0].Type)
	}
	if res.Columns[1].Type != resultset.TypeString {
		t.Errorf("s type = %q", res.Columns[1].Type)
	}
}

func TestExecuteEmptySelect(t *testing.T) {
	eng := openEngine(t)
	res, err := Execute(context.Background(), eng, "SELECT 1 AS n WHERE 0")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Columns) != 1 || len(res.Rows) != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Columns[0].Type != resultset.TypeNull {
		t.Errorf("type = %q, want unset", res.Columns[0].Type)
	}
}

func TestExecuteNoData(t *testing.T) {
	eng := openEngine(t)
	_, err := Execute(context.Background(), eng, "CREATE TABLE t (a)")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err.Error() != "Query completed but it returned no data." {
		t.Errorf("message = %q", err.Error())
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	eng := openEngine(t)
	if _, err := Execute(context.Background(), eng, "SELEC 1"); err == nil || errors.Is(err, ErrNoData) {
		t.Errorf("expected engine error, got %v", err)
	}
}

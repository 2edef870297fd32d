package results

import (
	"context"

	"github.com/aidanlsb/qres/internal/engine"
	"github.com/aidanlsb/qres/internal/resultset"
)

// Execute runs the composite query against eng. A statement that produces
// no columns returns ErrNoData.
func Execute(ctx context.Context, eng *engine.Engine, query string) (*resultset.Result, error) {
	rows, err := eng.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := resultset.Scan(rows)
	if err != nil {
		return nil, err
	}
	if len(res.Columns) == 0 {
		return nil, ErrNoData
	}
	return res, nil
}

package store

import (
	"context"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/querysql"
)

// Rows is a fully read result set.
type Rows struct {
	Columns []string
	Values  [][]any

	// Truncated is set when WithMaxRows stopped reading early.
	Truncated bool
}

// Len returns the number of rows read.
func (r *Rows) Len() int {
	return len(r.Values)
}

// Execute runs st and reads the complete result. Byte slices returned by
// the driver are converted to strings.
func (s *Store) Execute(ctx context.Context, st *querysql.Statement) (*Rows, error) {
	if st == nil || st.SQL == "" {
		return nil, errors.New("execute: empty statement")
	}

	rows, err := s.db.QueryContext(ctx, st.SQL, st.Params...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	out := &Rows{Columns: cols, Values: [][]any{}}
	for rows.Next() {
		if s.maxRows > 0 && len(out.Values) == s.maxRows {
			out.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scan row %d", len(out.Values)+1)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

// listPage runs a count query and a paged select sharing the same filter.
// The filter's WHERE is appended to countSQL. selectSQL must already
// contain it and its ORDER BY, ending just before LIMIT.
func listPage[T any](
	ctx context.Context,
	q querier,
	countSQL, selectSQL string,
	f *filter,
	p model.Pagination,
	scan func(pgx.Rows) (T, error),
) (*model.Page[T], error) {
	p = p.Normalize()

	var total int64
	if err := q.QueryRow(ctx, countSQL+f.where(), f.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	page := &model.Page[T]{Items: []T{}, Total: total, Pagination: p}
	if total == 0 {
		return page, nil
	}

	limit, args := f.page(p)
	rows, err := q.Query(ctx, selectSQL+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return page, nil
}

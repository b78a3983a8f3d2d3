package pagination

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

// DefaultPageSize applies when a forward request names no page size.
const DefaultPageSize = 20

// PageRequest carries the relay-style pagination arguments. Nil fields were
// absent from the request.
type PageRequest struct {
	First  *int
	After  *string
	Last   *int
	Before *string
}

// PageInfo describes the position of a page within the filtered sequence.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// Edge pairs an item with the cursor that addresses it.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// Connection is one page of results plus the filter-wide total.
type Connection[T any] struct {
	Edges      []Edge[T] `json:"edges"`
	PageInfo   PageInfo  `json:"pageInfo"`
	TotalCount int64     `json:"totalCount"`
}

// Filter is one WHERE predicate with ? placeholders for its arguments.
// Filters compose by conjunction.
type Filter struct {
	Expr string
	Args []interface{}
}

// Query describes a paginated SELECT over one table. Scan reads one row and
// returns both the decoded item and the value of the key column for that row.
type Query[T any] struct {
	Table     string
	Columns   []string
	KeyColumn string // defaults to "id"
	Filters   []Filter
	Scan      func(rows *sql.Rows) (T, int64, error)
}

// Paginate runs the cursor pagination algorithm: validate arguments, apply
// filters and cursor bounds, over-fetch one row to detect a further page, and
// compute the filter-wide total with a separate count query. Backward requests
// query in descending order and are reversed to ascending before the extra
// row is trimmed, so the trim removes the final ascending element.
func Paginate[T any](ctx context.Context, db *sql.DB, q Query[T], req PageRequest) (*Connection[T], error) {
	if req.First != nil && req.Last != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "cannot provide both first and last")
	}
	if req.First != nil && *req.First <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "first must be positive")
	}
	if req.Last != nil && *req.Last <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "last must be positive")
	}

	key := q.KeyColumn
	if key == "" {
		key = "id"
	}

	where := make([]string, 0, len(q.Filters)+2)
	args := make([]interface{}, 0, len(q.Filters)+3)
	for _, f := range q.Filters {
		where = append(where, f.Expr)
		args = append(args, f.Args...)
	}

	if req.After != nil {
		afterID, err := DecodeCursor(*req.After)
		if err != nil {
			return nil, err
		}
		where = append(where, fmt.Sprintf("%s > ?", key))
		args = append(args, afterID)
	}
	if req.Before != nil {
		beforeID, err := DecodeCursor(*req.Before)
		if err != nil {
			return nil, err
		}
		where = append(where, fmt.Sprintf("%s < ?", key))
		args = append(args, beforeID)
	}

	pageSize := DefaultPageSize
	order := "ASC"
	if req.Last != nil {
		pageSize = *req.Last
		order = "DESC"
	} else if req.First != nil {
		pageSize = *req.First
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.Table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ?", key, order)
	args = append(args, pageSize+1)

	rows, err := db.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("page query failed: %w", err)
	}
	defer rows.Close()

	type keyed struct {
		item T
		id   int64
	}
	var items []keyed
	for rows.Next() {
		item, id, err := q.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, keyed{item: item, id: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page query failed: %w", err)
	}

	if req.Last != nil {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:len(items)-1]
	}

	totalCount, err := countRows(ctx, db, q.Table, key, q.Filters)
	if err != nil {
		return nil, err
	}

	edges := make([]Edge[T], len(items))
	for i, it := range items {
		edges[i] = Edge[T]{Cursor: EncodeCursor(it.id), Node: it.item}
	}

	var startCursor, endCursor *string
	if len(edges) > 0 {
		startCursor = &edges[0].Cursor
		endCursor = &edges[len(edges)-1].Cursor
	}

	var hasNext, hasPrev bool
	if req.Last != nil {
		hasNext = req.Before != nil && hasMore
		hasPrev = req.After != nil || (req.Before == nil && hasMore)
	} else {
		hasNext = hasMore
		hasPrev = req.After != nil
	}

	return &Connection[T]{
		Edges: edges,
		PageInfo: PageInfo{
			HasNextPage:     hasNext,
			HasPreviousPage: hasPrev,
			StartCursor:     startCursor,
			EndCursor:       endCursor,
		},
		TotalCount: totalCount,
	}, nil
}

// countRows computes the filter-wide total. Cursor bounds never apply here,
// the total always reflects the whole filtered sequence.
func countRows(ctx context.Context, db *sql.DB, table, key string, filters []Filter) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", key, table)
	var args []interface{}
	if len(filters) > 0 {
		exprs := make([]string, len(filters))
		for i, f := range filters {
			exprs[i] = f.Expr
			args = append(args, f.Args...)
		}
		query += " WHERE " + strings.Join(exprs, " AND ")
	}

	var total int64
	if err := db.QueryRowContext(ctx, rebind(query), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return total, nil
}

// rebind rewrites ? placeholders to the positional $n form shared by the
// postgres and sqlite drivers.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

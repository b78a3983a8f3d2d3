// Package pagination implements cursor-based pagination over database/sql.
//
// # Overview
//
// Cursors are opaque base64 tokens addressing a row by its key column. A page
// query over-fetches one row past the requested size to learn whether a
// further page exists, and a second query computes the filter-wide total
// without the cursor bounds. Backward pages run the query descending and are
// reversed to ascending before the surplus row is trimmed, so edges always
// come back in ascending key order.
//
// # Usage
//
//	q := pagination.Query[*User]{
//		Table:   "users",
//		Columns: []string{"id", "email"},
//		Scan: func(rows *sql.Rows) (*User, int64, error) {
//			var u User
//			err := rows.Scan(&u.ID, &u.Email)
//			return &u, u.ID, err
//		},
//	}
//	conn, err := pagination.Paginate(ctx, db, q, req)
//
// Filters compose by conjunction and use ? placeholders, rebound to the
// positional form before execution:
//
//	q.Filters = []pagination.Filter{{Expr: "status = ?", Args: []interface{}{"Signed"}}}
//
// # Related Packages
//
//   - pkg/httputil: PageRequest extraction from query parameters
//   - pkg/apperr: InvalidArgument and InvalidCursor kinds raised here
package pagination

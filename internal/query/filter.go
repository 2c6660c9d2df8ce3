// Package query builds conjunctive SQL filter clauses from predicate
// parts, keeping the book query engine independent of how each screen's
// filters happen to be spelled.
package query

import "strings"

// Clause is a single predicate with its positional arguments.
type Clause struct {
	expr string
	args []interface{}
}

// Eq matches a column exactly.
func Eq(column string, value interface{}) Clause {
	return Clause{expr: column + " = ?", args: []interface{}{value}}
}

// GteFloat matches a numeric column at or above a threshold.
func GteFloat(column string, value float64) Clause {
	return Clause{expr: column + " >= ?", args: []interface{}{value}}
}

// ContainsFold matches a case-insensitive substring of a text column.
func ContainsFold(column, substr string) Clause {
	return Clause{
		expr: "LOWER(" + column + ") LIKE '%' || LOWER(?) || '%'",
		args: []interface{}{substr},
	}
}

// Filter is a conjunction of clauses.
type Filter struct {
	clauses []Clause
}

// And appends a clause to the conjunction.
func (f *Filter) And(c Clause) *Filter {
	f.clauses = append(f.clauses, c)
	return f
}

// Empty reports whether no clauses have been added.
func (f *Filter) Empty() bool {
	return len(f.clauses) == 0
}

// Where renders the conjunction as a SQL fragment (including the leading
// " WHERE ") plus its arguments in order. An empty filter renders to "".
func (f *Filter) Where() (string, []interface{}) {
	if len(f.clauses) == 0 {
		return "", nil
	}
	exprs := make([]string, 0, len(f.clauses))
	var args []interface{}
	for _, c := range f.clauses {
		exprs = append(exprs, c.expr)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}

package repository

import (
	"fmt"
	"strings"

	"github.com/xscan/xscan/internal/model"
)

// filter accumulates WHERE clauses with numbered placeholders.
type filter struct {
	clauses []string
	args    []any
}

// add appends a condition. cond must contain exactly one %d for the placeholder index.
func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(cond, len(f.args)))
}

// raw appends a condition without an argument.
func (f *filter) raw(cond string) {
	f.clauses = append(f.clauses, cond)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause and full args.
func (f *filter) page(p model.Pagination) (string, []any) {
	p = p.Normalize()
	n := len(f.args)
	args := append(append([]any{}, f.args...), p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// likePrefix escapes LIKE metacharacters and appends a wildcard.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(s)) + "%"
}

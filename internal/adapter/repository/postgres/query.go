package postgres

import (
	"fmt"
	"strings"
)

// where accumulates AND-ed conditions and their positional arguments.
type where struct {
	conds []string
	args  []any
}

func newWhere(args ...any) *where {
	return &where{args: args}
}

// arg binds v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(w.conds, " AND ")
}

// page appends LIMIT and OFFSET clauses.
func (w *where) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		b.WriteString(" LIMIT " + w.arg(limit))
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + w.arg(offset))
	}
	return b.String()
}

// likePattern escapes s for a case-insensitive substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

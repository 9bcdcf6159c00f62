// Package sqlxrepos implements the module repositories over Postgres with sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/trezcool/soma/core"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isForeignKeyViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == pqForeignKeyViolation
}

// isUniqueViolation reports whether err is a unique violation, optionally
// on the named constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	if len(constraint) > 0 {
		return pqErr.Constraint == constraint[0]
	}
	return true
}

// orderClause renders an ORDER BY list, falling back to def when no ordering
// was requested. Column names are validated against allowed.
func orderClause(ordering []core.DBOrdering, allowed map[string]bool, def string) string {
	cols := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			cols = append(cols, ord.String())
		}
	}
	if len(cols) == 0 {
		return def
	}
	return strings.Join(cols, ", ")
}

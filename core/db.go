package core

import (
	"strings"

	"github.com/pkg/errors"
)

// DBOrdering is one key of an "ORDER BY" list.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause renders orderings as an SQL "ORDER BY" list.
// Only fields listed in allowed are accepted; others are an InvalidInput error.
func OrderingClause(orderings []DBOrdering, allowed map[string]bool, fallback DBOrdering) (string, error) {
	if len(orderings) == 0 {
		return fallback.String(), nil
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if !allowed[ord.Field] {
			return "", NewValidationError(
				errors.Errorf("cannot order by %q", ord.Field),
				FieldError{Field: "ordering", Error: "cannot order by " + ord.Field},
			)
		}
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", "), nil
}

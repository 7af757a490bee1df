// Package sqlstore implements the corpus and conversation stores on
// database/sql. Backends differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

type Dialect struct {
	Name string
	// NumberedPlaceholders rewrites ? as $1, $2, ...
	NumberedPlaceholders bool
	// LockDocument serializes ingestion of one document inside tx. Nil when
	// the backend already serializes writers.
	LockDocument func(ctx context.Context, tx *sql.Tx, documentID string) error
}

func (d Dialect) rebind(query string) string {
	if !d.NumberedPlaceholders || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Package inmemdb provides map-backed repositories with the same
// semantics as the Postgres ones, for unit tests and local dev.
package inmemdb

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Honeysuckle52/interior/core"
)

func newID() string { return uuid.New().String() }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// createdAscending reports whether the ordering asks for created_at ASC.
// Anything else falls back to created_at DESC like the SQL repositories.
func createdAscending(ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		if ord.Field == "created_at" {
			return ord.Ascending
		}
	}
	return false
}

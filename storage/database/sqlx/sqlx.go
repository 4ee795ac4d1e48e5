package sqlxrepos

import (
	"strings"

	"github.com/Honeysuckle52/interior/core"
)

// orderBy renders an ORDER BY clause body, falling back to def when no
// ordering was requested. Fields come from code, never from user input.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}

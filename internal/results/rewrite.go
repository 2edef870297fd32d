package results

import (
	"fmt"
	"strings"
)

// Rewrite replaces each reference's token with its table name, one
// occurrence per reference, in order. The occurrence replaced is the first
// one at or after the reference's position, and never one inside or before
// an earlier replacement, so identical tokens map to their own tables.
func Rewrite(sql string, refs []Reference) (string, error) {
	out := sql
	cursor := 0
	shift := 0

	for _, ref := range refs {
		if ref.Token == "" {
			return "", fmt.Errorf("reference to query %d has no source text", ref.QueryID)
		}

		start := cursor
		if anchored := ref.Pos + shift; anchored > start && anchored <= len(out) {
			start = anchored
		}
		idx := strings.Index(out[start:], ref.Token)
		if idx < 0 && start > cursor {
			start = cursor
			idx = strings.Index(out[start:], ref.Token)
		}
		if idx < 0 {
			return "", fmt.Errorf("reference %q not found in query text", ref.Token)
		}
		idx += start

		out = out[:idx] + ref.Table + out[idx+len(ref.Token):]
		cursor = idx + len(ref.Table)
		shift += len(ref.Table) - len(ref.Token)
	}
	return out, nil
}

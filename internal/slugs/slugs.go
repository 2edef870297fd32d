// Package slugs turns saved query names into command-line friendly identifiers.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// ComponentSlug converts a query name to a lowercase, dash-separated slug.
// Names that slugify to nothing fall back to a simple lowercase/dash form.
func ComponentSlug(s string) string {
	s = strings.TrimSpace(s)
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(s, " ", "-"))
	}
	return slugged
}

// Equal reports whether two names produce the same slug.
func Equal(a, b string) bool {
	return ComponentSlug(a) == ComponentSlug(b)
}

// Package knowledge resolves which knowledge collections apply to the
// page a user is chatting from.
package knowledge

import (
	"net/url"
	"strings"

	"github.com/invicto-ai/roma-assistant/internal/config"
)

// Router is a pure lookup over an immutable route table; it holds no
// mutable state and is safe for concurrent use.
type Router struct {
	table config.RouteTable
}

func NewRouter(table config.RouteTable) *Router {
	return &Router{table: table}
}

// NormalizePage reduces a page input to a lower-cased path. Empty input
// becomes "/". A full URL keeps only its path component; anything that
// fails to parse is treated as a literal path rather than rejected.
func NormalizePage(page string) string {
	s := strings.TrimSpace(page)
	if s == "" {
		return "/"
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	return strings.ToLower(s)
}

// StoresForPage returns knowledge-collection ids ordered most-specific
// first: [specific, global]. Entries with unset ids are omitted and the
// global id is never duplicated. An empty result means the model
// answers from general knowledge.
func (r *Router) StoresForPage(page string) []string {
	path := NormalizePage(page)

	var specific string
	for _, e := range r.table.Entries {
		if e.StoreID == "" {
			continue
		}
		if path == e.Path || strings.HasPrefix(path, e.Path+"/") {
			specific = e.StoreID
			break
		}
	}

	stores := make([]string, 0, 2)
	if specific != "" {
		stores = append(stores, specific)
	}
	if r.table.Global != "" && r.table.Global != specific {
		stores = append(stores, r.table.Global)
	}
	return stores
}

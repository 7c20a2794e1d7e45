package ingest

import (
	"sort"
	"strings"
)

// Whitelist decides which envelope senders are accepted. Entries are exact
// addresses or "@domain" suffixes, compared case-insensitively. An empty
// whitelist accepts everyone.
type Whitelist struct {
	addresses map[string]struct{}
	domains   []string
}

func NewWhitelist(entries []string) *Whitelist {
	w := &Whitelist{addresses: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		switch {
		case e == "":
		case strings.HasPrefix(e, "@"):
			w.domains = append(w.domains, e)
		default:
			w.addresses[e] = struct{}{}
		}
	}
	return w
}

func (w *Whitelist) Empty() bool {
	return len(w.addresses) == 0 && len(w.domains) == 0
}

func (w *Whitelist) Allows(sender string) bool {
	if w.Empty() {
		return true
	}

	sender = strings.ToLower(strings.TrimSpace(sender))
	if _, ok := w.addresses[sender]; ok {
		return true
	}
	for _, d := range w.domains {
		if strings.HasSuffix(sender, d) {
			return true
		}
	}
	return false
}

// Entries returns the normalised entries in sorted order.
func (w *Whitelist) Entries() []string {
	out := make([]string, 0, len(w.addresses)+len(w.domains))
	for a := range w.addresses {
		out = append(out, a)
	}
	out = append(out, w.domains...)
	sort.Strings(out)
	return out
}

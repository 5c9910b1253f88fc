package verify

import "strings"

// Human-entered source names are inconsistent ("De Telegraaf RSS" vs
// "telegraaf.nl"), so matching is fuzzy. Exact normalized equality is
// always preferred over substring containment: when several candidates
// match a required source, the exact tier wins before any substring
// match is considered.

type matchKind int

const (
	matchNone matchKind = iota
	matchSubstring
	matchExact
)

var domainSuffixes = []string{".nl", ".be", ".com", ".net", ".org"}

var decorationTokens = map[string]struct{}{
	"rss":  {},
	"feed": {},
	"www":  {},
}

// normalizeSourceName lowercases, strips domain suffixes and feed
// decorations, and collapses whitespace.
func normalizeSourceName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range domainSuffixes {
		s = strings.TrimSuffix(s, suffix)
	}

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := decorationTokens[f]; drop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// matchSourceName classifies how well a candidate source name matches a
// configured name.
func matchSourceName(configured, candidate string) matchKind {
	a := normalizeSourceName(configured)
	b := normalizeSourceName(candidate)
	if a == "" || b == "" {
		return matchNone
	}
	if a == b {
		return matchExact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return matchSubstring
	}
	return matchNone
}

// SourceNamesMatch reports whether two source names refer to the same
// outlet under the fuzzy rules above.
func SourceNamesMatch(configured, candidate string) bool {
	return matchSourceName(configured, candidate) != matchNone
}

package filtering

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ChannelMatcher answers whether a source channel is whitelisted. Numeric
// specifiers and username specifiers are bucketed into separate lookup sets
// at build time.
type ChannelMatcher struct {
	ids   map[int64]struct{}
	names map[string]struct{}
}

// NewChannelMatcher builds a matcher from whitelist specifiers. A specifier
// that parses as an integer is treated as a channel ID; anything else is a
// username. Empty specifiers are ignored.
func NewChannelMatcher(specifiers []string) *ChannelMatcher {
	m := &ChannelMatcher{
		ids:   make(map[int64]struct{}, len(specifiers)),
		names: make(map[string]struct{}, len(specifiers)),
	}
	for _, spec := range specifiers {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if id, err := strconv.ParseInt(spec, 10, 64); err == nil {
			m.ids[id] = struct{}{}
			continue
		}
		m.names[NormalizeUsername(spec)] = struct{}{}
	}
	return m
}

// IsAllowed reports whether the channel passes the whitelist: its numeric ID
// matches, or its username (when present) matches after normalization.
func (m *ChannelMatcher) IsAllowed(channelID int64, username string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.ids[channelID]; ok {
		return true
	}
	if strings.TrimSpace(username) == "" {
		return false
	}
	_, ok := m.names[NormalizeUsername(username)]
	return ok
}

// Size returns the total number of whitelist entries.
func (m *ChannelMatcher) Size() int {
	if m == nil {
		return 0
	}
	return len(m.ids) + len(m.names)
}

// NormalizeUsername strips a leading @, applies NFKC normalization so
// visually identical usernames map to one key, and lower-cases the result.
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(norm.NFKC.String(username))
}

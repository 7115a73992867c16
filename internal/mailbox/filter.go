package mailbox

import (
	"net"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/raven/internal/errors"
)

// SenderMatcher compiles a glob over sender addresses. A sender matches if
// either its full address or just its host does, so "10.0.0.*" and
// "10.0.0.7" both select every port of 10.0.0.7. An empty pattern matches
// everything.
func SenderMatcher(pattern string) (func(from string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidationError("invalid sender pattern").
			WithField("from").
			WithValue(pattern).
			WithCause(err)
	}

	return func(from string) bool {
		if g.Match(from) {
			return true
		}
		host, _, err := net.SplitHostPort(from)
		return err == nil && g.Match(host)
	}, nil
}

// Filter keeps the entries whose sender satisfies match. Entries keep their
// original indices, so they still address the unfiltered mailbox.
func Filter(sections []Section, match func(from string) bool) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		kept := Section{Kind: s.Kind, Entries: make([]Entry, 0, len(s.Entries))}
		for _, e := range s.Entries {
			if match(e.From) {
				kept.Entries = append(kept.Entries, e)
			}
		}
		out = append(out, kept)
	}
	return out
}

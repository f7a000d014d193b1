package idgen

import (
	"fmt"
	"regexp"
	"strings"
)

// Grammar is the normative ID pattern: "bn-" followed by a base36 body,
// optionally followed by one or more ".<n>" child-index segments.
var Grammar = regexp.MustCompile(`^bn-[a-z0-9]+(\.[1-9][0-9]*)*$`)

// Valid reports whether id matches the normative grammar and length
// bounds (3-255 bytes total).
func Valid(id string) bool {
	if len(id) < 3 || len(id) > 255 {
		return false
	}
	return Grammar.MatchString(id)
}

// AmbiguousError is returned by Resolve when a prefix matches more than
// one existing ID and none of the matches is an exact equality.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("idgen: %q matches multiple ids: %s", e.Prefix, strings.Join(e.Matches, ", "))
}

// NotFoundError is returned by Resolve when no existing ID starts with
// the given prefix.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("idgen: no id matches prefix %q", e.Prefix)
}

// Resolve finds the full ID a user-supplied prefix (with or without the
// "bn-" prefix already attached) identifies among ids. An exact match
// always wins even when it is also a prefix of another ID.
func Resolve(prefix string, ids []string) (string, error) {
	full := prefix
	if !strings.HasPrefix(full, Prefix) {
		full = Prefix + prefix
	}

	for _, id := range ids {
		if id == full {
			return id, nil
		}
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, full) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Prefix: prefix, Matches: matches}
	}
}

// ChildID computes a child identifier for parent at index n, without
// allocating or storing it.
func ChildID(parent string, n int) string {
	return fmt.Sprintf("%s.%d", parent, n)
}

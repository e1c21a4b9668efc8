// Package testid implements parsing and normalization of textual test
// identifiers. An identifier combines a file path with an optional bracketed,
// colon-delimited location vector, e.g. "spec/square_spec.rb[1:2]". RSpec ids
// use nested colon locations; Minitest ids carry a single line number, e.g.
// "abs_test.rb[4]".
package testid

import (
	"strconv"
	"strings"
)

// ID is the parsed form of a textual test identifier. It is computed on
// demand and never stored.
type ID struct {
	PathSegments []string
	Location     []int
}

// HasLocation reports whether the identifier carries a bracketed location.
func (id ID) HasLocation() bool {
	return len(id.Location) > 0
}

// Normalize canonicalizes a raw test identifier. It strips a leading "./",
// then a leading rootPrefix (the configured test directory, if any), then any
// remaining leading path separator, and finally a trailing path separator.
// Pure and total: malformed input is returned as-is after the strips.
func Normalize(raw string, rootPrefix string) string {
	id := strings.TrimPrefix(raw, "./")

	if rootPrefix != "" {
		prefix := strings.TrimPrefix(rootPrefix, "./")
		id = strings.TrimPrefix(id, prefix)
	}

	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	return id
}

// Parse splits a normalized identifier into path segments and a location
// vector. A final segment carrying an unparseable bracket suffix is kept as a
// literal path segment; runner output is noisy and must never hard-fail here.
func Parse(id string) ID {
	segments := strings.Split(id, "/")

	last := segments[len(segments)-1]
	base, location, ok := splitLocation(last)
	if !ok {
		return ID{PathSegments: segments}
	}

	segments[len(segments)-1] = base
	return ID{PathSegments: segments, Location: location}
}

// splitLocation extracts a bracketed location vector from a path segment.
// Returns ok=false when the segment has no well-formed "[n:m:...]" suffix.
func splitLocation(segment string) (base string, location []int, ok bool) {
	open := strings.LastIndex(segment, "[")
	if open < 0 || !strings.HasSuffix(segment, "]") {
		return segment, nil, false
	}

	inner := segment[open+1 : len(segment)-1]
	if inner == "" {
		return segment, nil, false
	}

	parts := strings.Split(inner, ":")
	location = make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return segment, nil, false
		}
		location = append(location, n)
	}

	return segment[:open], location, true
}

// AncestorChain produces every ancestor id of the given identifier, from the
// shallowest to the id itself. Two splitting rules compose:
//
//   - path rule: each successive prefix-join of the path segments is one
//     ancestor ("a/b/c.rb" -> "a", "a/b", "a/b/c.rb")
//   - location rule: each non-empty prefix of a colon-delimited location
//     vector re-appended to the file id is one further ancestor, in
//     increasing length ("c.rb[1:2]" -> ..., "c.rb[1]", "c.rb[1:2]")
//
// A single-integer location contributes exactly one entry (the leaf itself);
// it represents one flat level of grouping with no nested contexts.
func AncestorChain(id string) []string {
	parsed := Parse(id)

	chain := make([]string, 0, len(parsed.PathSegments)+len(parsed.Location))
	for i := range parsed.PathSegments {
		chain = append(chain, strings.Join(parsed.PathSegments[:i+1], "/"))
	}

	if !parsed.HasLocation() {
		return chain
	}

	fileID := chain[len(chain)-1]
	for i := range parsed.Location {
		chain = append(chain, fileID+"["+joinLocation(parsed.Location[:i+1])+"]")
	}

	return chain
}

// CanResolveChildren reports whether candidateID may still have undiscovered
// children when resolving targetID. It is false only for the target itself
// when the target ends in a bracketed location, i.e. a complete leaf-test
// address.
func CanResolveChildren(candidateID, targetID string) bool {
	if candidateID != targetID {
		return true
	}
	return !Parse(candidateID).HasLocation()
}

func joinLocation(location []int) string {
	parts := make([]string, len(location))
	for i, n := range location {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ":")
}

// Package registry matches a discovered device fingerprint
// (manufacturer, model) against a collection of bundled profile
// references using case-insensitive exact match, then bounded
// wildcard pattern match.
package registry

import "strings"

// maxWildcardPieces caps pattern-split iteration as an
// algorithmic-complexity guard against adversarial profile patterns.
const maxWildcardPieces = 100

// maxFieldLength is the input-validation length ceiling for both
// manufacturer and model strings.
const maxFieldLength = 128

// ProfileReference identifies one bundled profile: the manufacturer it
// belongs to, and the model pattern(s) it matches against.
type ProfileReference struct {
	ID            string
	Manufacturer  string
	ModelPatterns []string
}

// Result is the outcome of a Lookup call.
type Result struct {
	Found       bool
	Reference   *ProfileReference
	Unsupported bool
	Suggestion  string // first same-manufacturer profile, if any
}

// Registry holds profile references in declaration order; matching
// order matters when more than one pattern matches (spec.md §4.5
// scenario 2: first declared match wins).
type Registry struct {
	refs []ProfileReference
}

// New builds a Registry from profile references in the given order.
func New(refs []ProfileReference) *Registry {
	return &Registry{refs: append([]ProfileReference(nil), refs...)}
}

// Lookup resolves a device fingerprint against the registry.
func (r *Registry) Lookup(manufacturer, model string) Result {
	if !validInput(manufacturer) || !validInput(model) {
		return Result{}
	}

	mfr := strings.ToLower(manufacturer)
	mdl := strings.ToLower(model)

	for i := range r.refs {
		ref := r.refs[i]
		if strings.ToLower(ref.Manufacturer) != mfr {
			continue
		}
		for _, pattern := range ref.ModelPatterns {
			if strings.ToLower(pattern) == mdl {
				return Result{Found: true, Reference: &r.refs[i]}
			}
		}
	}

	for i := range r.refs {
		ref := r.refs[i]
		if strings.ToLower(ref.Manufacturer) != mfr {
			continue
		}
		for _, pattern := range ref.ModelPatterns {
			if wildcardMatch(strings.ToLower(pattern), mdl) {
				return Result{Found: true, Reference: &r.refs[i]}
			}
		}
	}

	for i := range r.refs {
		if strings.ToLower(r.refs[i].Manufacturer) == mfr {
			return Result{Unsupported: true, Suggestion: r.refs[i].ID}
		}
	}

	return Result{}
}

// validInput rejects control characters (C0, DEL, C1) and strings
// longer than maxFieldLength, per spec.md §4.5's input-validation guard.
func validInput(s string) bool {
	if len(s) > maxFieldLength {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			return false
		}
	}
	return true
}

// wildcardMatch implements bounded `*`-only pattern matching: the
// pattern is split on `*` (preserving empty pieces), and each
// non-empty piece must be located in order within input, with the
// first/last piece anchored to the input's start/end unless the
// pattern began/ended with `*`.
func wildcardMatch(pattern, input string) bool {
	pieces := strings.Split(pattern, "*")
	if len(pieces) > maxWildcardPieces {
		return false
	}
	if len(pieces) == 1 {
		return pieces[0] == input
	}

	pos := 0
	for i, piece := range pieces {
		if piece == "" {
			continue
		}
		if i == 0 {
			if !strings.HasPrefix(input, piece) {
				return false
			}
			pos = len(piece)
			continue
		}
		if i == len(pieces)-1 {
			return strings.HasSuffix(input[pos:], piece)
		}
		idx := strings.Index(input[pos:], piece)
		if idx < 0 {
			return false
		}
		pos += idx + len(piece)
	}
	return true
}

package models

import "strings"

// TagPrefix marks symbolic upstream release tags (e.g. llvmorg-19-init).
const TagPrefix = "llvmorg-"

// ShortHashMax is the longest abbreviated commit form; anything hex and
// longer is treated as a full hash.
const ShortHashMax = 12

// FullHashLen is the length of a complete commit hash.
const FullHashLen = 40

// RevisionKind is the classification of a RevisionSpec. Exactly one kind
// applies to any spec, and the kind selects the resolution strategy.
type RevisionKind string

const (
	RevisionTag       RevisionKind = "tag"
	RevisionFullHash  RevisionKind = "full_hash"
	RevisionShortHash RevisionKind = "short_hash"
	RevisionBranch    RevisionKind = "branch"
)

// RevisionSpec identifies a desired source revision: a symbolic tag, a full
// or abbreviated commit hash, or a branch name.
type RevisionSpec string

// Kind classifies the spec.
func (s RevisionSpec) Kind() RevisionKind {
	v := string(s)
	switch {
	case strings.HasPrefix(v, TagPrefix):
		return RevisionTag
	case isHex(v) && len(v) > ShortHashMax:
		return RevisionFullHash
	case isHex(v) && len(v) > 0:
		return RevisionShortHash
	default:
		return RevisionBranch
	}
}

func (s RevisionSpec) String() string { return string(s) }

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// SourceTree is a working copy pinned to a resolved commit. Commit is always
// a full hash that was actually checked out, never a tag name or short form.
type SourceTree struct {
	Dir    string
	Commit string

	// Substituted is set when short-hash resolution gave up and the default
	// branch tip was checked out instead. That path only exists behind an
	// explicit opt-in; the flag keeps the substitution observable downstream.
	Substituted bool
}

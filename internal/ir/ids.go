package ir

import "fmt"

// ID identifies a node of the typed IR. IDs are unique within a Crate.
type ID uint32

// NoID is the invalid ID.
//
// Inside a Res it marks a definition that lives outside the crate.
const NoID ID = 0

// IsValid reports whether the ID names a node (non-zero).
func (id ID) IsValid() bool { return id != NoID }

func (id ID) String() string { return fmt.Sprintf("#%d", uint32(id)) }

// Span is a source location.
type Span struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the span carries a line.
func (s Span) IsValid() bool { return s.Line > 0 }

func (s Span) String() string {
	if !s.IsValid() {
		if s.File != "" {
			return s.File
		}
		return "-"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Visibility is the syntactic visibility written on a declaration.
type Visibility uint8

const (
	// VisPrivate is the default, module-private visibility.
	VisPrivate Visibility = iota
	// VisRestricted is pub(crate), pub(super) and friends.
	VisRestricted
	// VisPublic is plain pub.
	VisPublic
)

// IsPub reports whether the visibility is plain pub.
func (v Visibility) IsPub() bool { return v == VisPublic }

func (v Visibility) String() string {
	switch v {
	case VisPrivate:
		return "private"
	case VisRestricted:
		return "restricted"
	case VisPublic:
		return "pub"
	default:
		return "unknown"
	}
}

// AccessLevel says how far outside the crate a declaration can be observed.
// Levels are ordered; a higher level implies all lower ones.
type AccessLevel uint8

const (
	// AccessReachableFromImplTrait: only through an opaque return type.
	AccessReachableFromImplTrait AccessLevel = iota + 1
	// AccessReachable: nameable from outside through public signatures.
	AccessReachable
	// AccessExported: reexported through a public path.
	AccessExported
	// AccessPublic: public path from the crate root.
	AccessPublic
)

func (l AccessLevel) String() string {
	switch l {
	case AccessReachableFromImplTrait:
		return "reachable_from_impl_trait"
	case AccessReachable:
		return "reachable"
	case AccessExported:
		return "exported"
	case AccessPublic:
		return "public"
	default:
		return "none"
	}
}

// AccessLevels maps declarations to their accessibility level.
// Declarations absent from the map are not observable outside the crate.
type AccessLevels map[ID]AccessLevel

// Set raises the level of id to at least level.
func (a AccessLevels) Set(id ID, level AccessLevel) {
	if a[id] < level {
		a[id] = level
	}
}

// AtLeast reports whether id is accessible at level or above.
func (a AccessLevels) AtLeast(id ID, level AccessLevel) bool {
	return a[id] >= level
}

// Package lint answers lint-level queries for the dead_code lint: whether a
// finding at a declaration is allowed, a warning or an error, and whether the
// declaration is exempt from analysis altogether.
//
// Levels are set with attributes such as `allow(dead_code)` and inherit from
// enclosing declarations. A `forbid` cannot be lowered further in.
package lint

import (
	"fmt"
	"strings"

	"github.com/roach88/deadlint/internal/ir"
)

// Level is a lint level.
type Level uint8

const (
	Allow Level = iota
	Warn
	Deny
	Forbid
)

func (l Level) String() string {
	switch l {
	case Allow:
		return "allow"
	case Warn:
		return "warn"
	case Deny:
		return "deny"
	case Forbid:
		return "forbid"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// ParseLevel parses "allow", "warn", "deny" or "forbid".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return Allow, nil
	case "warn":
		return Warn, nil
	case "deny":
		return Deny, nil
	case "forbid":
		return Forbid, nil
	default:
		return Warn, fmt.Errorf("unknown lint level %q (want allow, warn, deny or forbid)", s)
	}
}

// Names are the lint names that control dead-code findings: the lint itself
// and the group it belongs to.
var Names = []string{"dead_code", "unused"}

// Markers are the attributes that keep a declaration alive regardless of
// its uses: language items, handlers the runtime calls, symbols kept in the
// binary or exported under a linker name.
var Markers = []string{
	"lang",
	"panic_handler",
	"alloc_error_handler",
	"used",
	"no_mangle",
	"export_name",
}

// Levels computes lint levels and exemptions over one crate. Results are
// memoized; a Levels must not be shared across goroutines.
type Levels struct {
	crate   *ir.Crate
	def     Level
	markers map[string]bool
	cache   map[ir.ID]Level
}

// Option configures Levels.
type Option func(*Levels)

// WithDefault sets the crate-wide level used when no attribute applies.
func WithDefault(l Level) Option {
	return func(lv *Levels) { lv.def = l }
}

// WithMarkers adds attribute names treated like the built-in Markers.
func WithMarkers(names ...string) Option {
	return func(lv *Levels) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				lv.markers[n] = true
			}
		}
	}
}

// New returns the lint levels of c. The default level is Warn.
func New(c *ir.Crate, opts ...Option) *Levels {
	lv := &Levels{
		crate:   c,
		def:     Warn,
		markers: make(map[string]bool, len(Markers)),
		cache:   make(map[ir.ID]Level),
	}
	for _, m := range Markers {
		lv.markers[m] = true
	}
	for _, opt := range opts {
		opt(lv)
	}
	return lv
}

// Level returns the dead_code level in effect at the declaration.
func (lv *Levels) Level(id ir.ID) Level {
	if l, ok := lv.cache[id]; ok {
		return l
	}

	var l Level
	if parent := lv.crate.Parent(id); parent.IsValid() {
		l = lv.Level(parent)
	} else {
		l = lv.def
	}

	if n, ok := lv.crate.Node(id); ok {
		if d, ok := n.(ir.Decl); ok {
			l = apply(l, d.DeclAttrs())
		}
	}

	lv.cache[id] = l
	return l
}

// apply folds the level attributes of one declaration into the inherited
// level, innermost attribute last.
func apply(l Level, attrs ir.Attrs) Level {
	for _, a := range attrs {
		next, err := ParseLevel(a.Name)
		if err != nil || !namesLint(a.Args) {
			continue
		}
		if l == Forbid {
			continue
		}
		l = next
	}
	return l
}

func namesLint(args []string) bool {
	for _, arg := range args {
		for _, n := range Names {
			if arg == n {
				return true
			}
		}
	}
	return false
}

// HasMarker reports whether the declaration carries one of the marker
// attributes.
func (lv *Levels) HasMarker(id ir.ID) bool {
	n, ok := lv.crate.Node(id)
	if !ok {
		return false
	}
	d, ok := n.(ir.Decl)
	if !ok {
		return false
	}
	for _, a := range d.DeclAttrs() {
		if lv.markers[a.Name] {
			return true
		}
	}
	return false
}

// IsExempt reports whether the declaration is kept alive regardless of its
// uses: it carries a marker attribute, or the lint is allowed at it.
func (lv *Levels) IsExempt(id ir.ID) bool {
	return lv.HasMarker(id) || lv.Level(id) == Allow
}

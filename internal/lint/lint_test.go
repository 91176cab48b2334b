package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/ir"
)

// nested builds root > mod(modAttrs) > fn(fnAttrs) and returns the crate,
// module and function IDs.
func nested(t *testing.T, modAttrs, fnAttrs ir.Attrs) (*ir.Crate, ir.ID, ir.ID) {
	t.Helper()
	c := ir.NewCrate("demo")
	mod := &ir.Item{ID: c.NewID(), Name: "m", Attrs: modAttrs, Kind: &ir.ModItem{}}
	require.NoError(t, c.Add(mod, c.Root))
	fn := &ir.Item{ID: c.NewID(), Name: "f", Attrs: fnAttrs, Kind: &ir.FnItem{Sig: &ir.FnSig{}, Body: &ir.Body{}}}
	require.NoError(t, c.Add(fn, mod.ID))
	return c, mod.ID, fn.ID
}

func lvl(name string, args ...string) ir.Attr { return ir.Attr{Name: name, Args: args} }

// TestLevel_Inheritance tests that levels flow from enclosing declarations.
func TestLevel_Inheritance(t *testing.T) {
	tests := []struct {
		name     string
		def      Level
		modAttrs ir.Attrs
		fnAttrs  ir.Attrs
		want     Level
	}{
		{"default warn", Warn, nil, nil, Warn},
		{"crate default allow", Allow, nil, nil, Allow},
		{"module allow", Warn, ir.Attrs{lvl("allow", "dead_code")}, nil, Allow},
		{"group name", Warn, ir.Attrs{lvl("allow", "unused")}, nil, Allow},
		{"inner overrides outer", Warn, ir.Attrs{lvl("allow", "dead_code")}, ir.Attrs{lvl("deny", "dead_code")}, Deny},
		{"forbid is sticky", Warn, ir.Attrs{lvl("forbid", "dead_code")}, ir.Attrs{lvl("allow", "dead_code")}, Forbid},
		{"other lints ignored", Warn, ir.Attrs{lvl("allow", "unused_imports")}, nil, Warn},
		{"last attribute wins", Warn, nil, ir.Attrs{lvl("deny", "dead_code"), lvl("allow", "dead_code")}, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, fn := nested(t, tt.modAttrs, tt.fnAttrs)
			lv := New(c, WithDefault(tt.def))
			assert.Equal(t, tt.want, lv.Level(fn))
			assert.Equal(t, tt.want == Allow, lv.IsExempt(fn))
		})
	}
}

// TestIsExempt_Markers tests that intrinsic marker attributes exempt a
// declaration without changing its level.
func TestIsExempt_Markers(t *testing.T) {
	for _, marker := range Markers {
		t.Run(marker, func(t *testing.T) {
			c, mod, fn := nested(t, nil, ir.Attrs{{Name: marker}})
			lv := New(c)
			assert.True(t, lv.IsExempt(fn))
			assert.Equal(t, Warn, lv.Level(fn))
			assert.False(t, lv.IsExempt(mod), "markers do not propagate to the parent")
		})
	}
}

// TestIsExempt_ExtraMarkers tests configured marker attributes.
func TestIsExempt_ExtraMarkers(t *testing.T) {
	c, _, fn := nested(t, nil, ir.Attrs{{Name: "wasm_export"}})
	assert.False(t, New(c).IsExempt(fn))
	assert.True(t, New(c, WithMarkers("wasm_export", " ")).IsExempt(fn))
}

// TestIsExempt_UnknownNode tests that IDs outside the crate are not exempt.
func TestIsExempt_UnknownNode(t *testing.T) {
	c, _, _ := nested(t, nil, nil)
	lv := New(c)
	assert.False(t, lv.IsExempt(ir.ID(500)))
	assert.Equal(t, Warn, lv.Level(ir.ID(500)))
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{Allow, Warn, Deny, Forbid} {
		got, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	got, err := ParseLevel(" DENY ")
	require.NoError(t, err)
	assert.Equal(t, Deny, got)

	_, err = ParseLevel("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lint level")
}

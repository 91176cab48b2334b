package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashTestCrate(t *testing.T, line int) *Crate {
	t.Helper()
	c := NewCrate("shapes")
	mod := &Item{ID: c.NewID(), Name: "geo", Kind: &ModItem{}}
	require.NoError(t, c.Add(mod, c.Root))
	fn := &Item{
		ID:   c.NewID(),
		Name: "area",
		Span: Span{File: "shapes.cue", Line: line, Col: 3},
		Kind: &FnItem{Sig: &FnSig{}, Body: &Body{}},
	}
	require.NoError(t, c.Add(fn, mod.ID))
	return c
}

func TestDefPath(t *testing.T) {
	c := hashTestCrate(t, 4)
	assert.Equal(t, "geo::area", c.DefPath(3))
	assert.Equal(t, "geo", c.DefPath(2))
	assert.Equal(t, "", c.DefPath(c.Root))
}

func TestLookupPath(t *testing.T) {
	c := hashTestCrate(t, 4)
	id, ok := c.LookupPath("geo::area")
	require.True(t, ok)
	assert.Equal(t, ID(3), id)

	_, ok = c.LookupPath("geo::volume")
	assert.False(t, ok)
	_, ok = c.LookupPath("")
	assert.False(t, ok)
}

func TestCrateHashDeterminism(t *testing.T) {
	h1, err := CrateHash(hashTestCrate(t, 4))
	require.NoError(t, err)
	h2, err := CrateHash(hashTestCrate(t, 4))
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "CrateHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")

	h3, err := CrateHash(hashTestCrate(t, 5))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "moving a declaration changes the fingerprint")
}

func TestFindingIDChangesWithInput(t *testing.T) {
	id1 := MustFindingID("shapes", "geo::area", "function", "used")
	id2 := MustFindingID("other", "geo::area", "function", "used")
	id3 := MustFindingID("shapes", "geo::perimeter", "function", "used")
	id4 := MustFindingID("shapes", "geo::area", "field", "read")

	assert.Equal(t, id1, MustFindingID("shapes", "geo::area", "function", "used"))
	assert.NotEqual(t, id1, id2, "different crates should produce different IDs")
	assert.NotEqual(t, id1, id3, "different paths should produce different IDs")
	assert.NotEqual(t, id1, id4, "different kinds should produce different IDs")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainCrate, data), hashWithDomain(DomainFinding, data))
}

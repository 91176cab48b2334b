package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for changing the algorithm.
const (
	DomainCrate   = "deadlint/crate/v1"
	DomainFinding = "deadlint/finding/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DefPath returns the `::`-joined path of a declaration from the crate
// root, e.g. `shapes::Circle::area`. Unnamed containers are skipped.
func (c *Crate) DefPath(id ID) string {
	var names []string
	for cur := id; cur.IsValid() && cur != c.Root; cur = c.parents[cur] {
		n, ok := c.nodes[cur]
		if !ok {
			break
		}
		if d, ok := n.(Decl); ok && d.DeclName() != "" {
			names = append(names, d.DeclName())
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "::")
}

// LookupPath returns the first declaration whose DefPath is path.
func (c *Crate) LookupPath(path string) (ID, bool) {
	for _, id := range c.IDs() {
		if _, ok := c.nodes[id].(Decl); ok && id != c.Root && c.DefPath(id) == path {
			return id, true
		}
	}
	return NoID, false
}

// CrateHash fingerprints the declarations of a crate: their paths, kinds
// and locations. Two runs over the same source share a hash.
func CrateHash(c *Crate) (string, error) {
	decls := make([]any, 0, len(c.nodes))
	for _, id := range c.IDs() {
		d, ok := c.nodes[id].(Decl)
		if !ok {
			continue
		}
		span := d.DeclSpan()
		decls = append(decls, map[string]any{
			"path": c.DefPath(id),
			"kind": c.DefKind(id).String(),
			"file": span.File,
			"line": span.Line,
			"col":  span.Col,
		})
	}

	canonical, err := MarshalCanonical(map[string]any{
		"crate": c.Name,
		"decls": decls,
	})
	if err != nil {
		return "", fmt.Errorf("CrateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCrate, canonical), nil
}

// FindingID identifies a dead-code finding independently of its source
// location, so the same finding keeps its ID when code above it moves.
func FindingID(crate, path, descr, participle string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"crate":      crate,
		"path":       path,
		"descr":      descr,
		"participle": participle,
	})
	if err != nil {
		return "", fmt.Errorf("FindingID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFinding, canonical), nil
}

// MustFindingID is like FindingID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFindingID(crate, path, descr, participle string) string {
	id, err := FindingID(crate, path, descr, participle)
	if err != nil {
		panic(err)
	}
	return id
}

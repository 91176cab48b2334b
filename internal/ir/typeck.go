package ir

// TypeckResults holds what the type checker learned about expressions and
// patterns: their types, the types after auto-deref adjustments, the
// resolution of type-dependent paths and method calls, and the field index
// of each field access.
type TypeckResults struct {
	types         map[ID]Type
	adjusted      map[ID]Type
	typeDependent map[ID]Res
	fieldIndices  map[ID]int
}

// NewTypeckResults returns empty results.
func NewTypeckResults() *TypeckResults {
	return &TypeckResults{
		types:         map[ID]Type{},
		adjusted:      map[ID]Type{},
		typeDependent: map[ID]Res{},
		fieldIndices:  map[ID]int{},
	}
}

// SetType records the type of an expression or pattern.
func (t *TypeckResults) SetType(id ID, ty Type) { t.types[id] = ty }

// SetAdjustedType records the type of an expression after adjustments.
func (t *TypeckResults) SetAdjustedType(id ID, ty Type) { t.adjusted[id] = ty }

// SetTypeDependentDef records the resolution of a method call or
// type-relative path.
func (t *TypeckResults) SetTypeDependentDef(id ID, res Res) { t.typeDependent[id] = res }

// SetFieldIndex records which field a field expression or field pattern
// selects.
func (t *TypeckResults) SetFieldIndex(id ID, index int) { t.fieldIndices[id] = index }

// NodeType returns the type of an expression or pattern.
func (t *TypeckResults) NodeType(id ID) (Type, bool) {
	ty, ok := t.types[id]
	return ty, ok
}

// ExprTypeAdjusted returns the type of an expression after adjustments,
// falling back to its plain type.
func (t *TypeckResults) ExprTypeAdjusted(id ID) (Type, bool) {
	if ty, ok := t.adjusted[id]; ok {
		return ty, true
	}
	return t.NodeType(id)
}

// TypeDependentDef returns the resolution of a method call or a
// type-relative path.
func (t *TypeckResults) TypeDependentDef(id ID) (Res, bool) {
	res, ok := t.typeDependent[id]
	return res, ok
}

// FieldIndex returns the index of the field selected by a field expression
// or field pattern.
func (t *TypeckResults) FieldIndex(id ID) (int, bool) {
	i, ok := t.fieldIndices[id]
	return i, ok
}

// QPathRes resolves a path occurring in the node with the given ID. Fully
// resolved paths carry their own resolution; type-relative ones are looked
// up in the type-dependent table and are erroneous when absent.
func (t *TypeckResults) QPathRes(q QPath, id ID) Res {
	switch q := q.(type) {
	case *ResolvedPath:
		if q.Path == nil {
			return ErrRes()
		}
		return q.Path.Res
	case *TypeRelativePath:
		if res, ok := t.typeDependent[id]; ok {
			return res
		}
	}
	return ErrRes()
}

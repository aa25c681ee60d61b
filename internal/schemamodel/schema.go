package schemamodel

// Schema is an ordered mapping of top-level names to Field, plus a derived
// Leafs mapping from path tuple to Field, pre-computed once.
type Schema struct {
	Fields *OrderedFields
	Leafs  map[string]*Field // keyed by Path.String()
	// LeafOrder preserves first-discovery order of leaf paths, as found by
	// the leaf-enumeration walk, giving a deterministic iteration order over
	// Leafs.
	LeafOrder []Path
}

// NewSchema builds a Schema from top-level fields and pre-computes the leaf
// set by walking the tree once.
func NewSchema(fields *OrderedFields) *Schema {
	s := &Schema{Fields: fields, Leafs: make(map[string]*Field)}
	for _, name := range fields.Names() {
		f, _ := fields.Get(name)
		s.walk(Path{name}, f)
	}
	return s
}

func (s *Schema) walk(path Path, f *Field) {
	switch {
	case f.IsLeaf():
		key := path.String()
		if _, exists := s.Leafs[key]; !exists {
			s.LeafOrder = append(s.LeafOrder, append(Path(nil), path...))
		}
		s.Leafs[key] = f
	case f.IsRepeated():
		childPath := append(append(Path(nil), path...), Wildcard)
		s.walk(childPath, f.RepeatedField)
	case f.IsStruct():
		for _, name := range f.Fields.Names() {
			child, _ := f.Fields.Get(name)
			s.walk(append(append(Path(nil), path...), name), child)
		}
	}
}

// Resolve walks the schema for the given path, returning the Field at that
// path (leaf or internal) and whether it was found at all. Wildcard segments
// in the path are matched against repeated-group nodes.
func (s *Schema) Resolve(path Path) (field *Field, found bool) {
	var cur *Field
	for i, seg := range path {
		if i == 0 {
			f, ok := s.Fields.Get(seg)
			if !ok {
				return nil, false
			}
			cur = f
			continue
		}
		if IsRepeatedPathPart(seg) {
			if !cur.IsRepeated() {
				return nil, false
			}
			cur = cur.RepeatedField
			continue
		}
		if !cur.IsStruct() {
			return nil, false
		}
		f, ok := cur.Fields.Get(seg)
		if !ok {
			return nil, false
		}
		cur = f
	}
	return cur, true
}

// LeafAt returns the Field at path only if it is a schema leaf, distinguishing
// "not in schema at all" from "present but not a leaf".
//
// notInSchema is true when no node exists at path; notLeaf is true when a
// node exists but is a struct or list.
func (s *Schema) LeafAt(path Path) (field *Field, notInSchema, notLeaf bool) {
	f, found := s.Resolve(path)
	if !found {
		return nil, true, false
	}
	if !f.IsLeaf() {
		return nil, false, true
	}
	return f, false, false
}

// Clone returns a deep-enough copy suitable for merging (manifest.go mutates
// only the top-level OrderedFields, never nested Field values).
func (s *Schema) Clone() *Schema {
	cloned := NewOrderedFields()
	for _, name := range s.Fields.Names() {
		f, _ := s.Fields.Get(name)
		cloned.Set(name, f)
	}
	return NewSchema(cloned)
}

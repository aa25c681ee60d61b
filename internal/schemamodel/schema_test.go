package schemamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSchema() *Schema {
	nested := Struct(NewOrderedFields(
		FieldPair{"wrong_name", Leaf(DTypeString)},
	))
	listOfStructs := List(Struct(NewOrderedFields(
		FieldPair{"name", Leaf(DTypeString)},
	)))
	return NewSchema(NewOrderedFields(
		FieldPair{"name", Leaf(DTypeString)},
		FieldPair{"age", Leaf(DTypeInt)},
		FieldPair{"active", Leaf(DTypeBool)},
		FieldPair{"nested_struct", Struct(NewOrderedFields(
			FieldPair{"struct", nested},
		))},
		FieldPair{"list_of_structs", listOfStructs},
	))
}

func TestSchemaLeafEnumeration(t *testing.T) {
	s := buildTestSchema()
	_, found := s.Leafs[Path{"name"}.String()]
	assert.True(t, found)
	_, found = s.Leafs[Path{"list_of_structs", "*", "name"}.String()]
	assert.True(t, found)
	_, found = s.Leafs[Path{"nested_struct", "struct", "wrong_name"}.String()]
	assert.True(t, found)
}

func TestSchemaLeafAt(t *testing.T) {
	s := buildTestSchema()

	_, notInSchema, notLeaf := s.LeafAt(Path{"nested_struct", "struct", "wrong_name"})
	assert.False(t, notInSchema)
	assert.False(t, notLeaf)

	_, notInSchema, notLeaf = s.LeafAt(Path{"nested_struct", "struct", "missing"})
	assert.True(t, notInSchema)
	assert.False(t, notLeaf)

	_, notInSchema, notLeaf = s.LeafAt(Path{"nested_struct"})
	assert.False(t, notInSchema)
	assert.True(t, notLeaf)
}

func TestSchemaResolveWildcard(t *testing.T) {
	s := buildTestSchema()
	f, found := s.Resolve(Path{"list_of_structs", "*", "name"})
	require.True(t, found)
	assert.True(t, f.IsLeaf())
	assert.Equal(t, DTypeString, f.Dtype)
}

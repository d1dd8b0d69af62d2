package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	n, err := Parse("  view_list ")
	require.NoError(t, err)
	assert.Equal(t, ViewList, n)

	for _, bad := range []string{"", "1VIEW", "VIEW-LIST", "view list"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestSetOperations(t *testing.T) {
	s := NewSet(View, Edit)
	s.Add(Create)
	s.Union(NewSet(View, Delete))

	assert.Equal(t, []Name{Create, Delete, Edit, View}, s.Sorted())
	assert.Equal(t, []string{"CREATE", "DELETE", "EDIT", "VIEW"}, s.Strings())
	assert.True(t, s.Has(Delete))
	assert.False(t, s.Has(Export))
}

func TestMissing(t *testing.T) {
	vocab := NewSet(View, Edit, Create)
	assert.Empty(t, NewSet(View, Edit).Missing(vocab))
	assert.Equal(t, []Name{Export, Transfer}, NewSet(View, Transfer, Export).Missing(vocab))
}

func TestCloneAndEqual(t *testing.T) {
	s := FromStrings([]string{"view", "", "EDIT"})
	c := s.Clone()
	assert.True(t, s.Equal(c))

	c.Add(Delete)
	assert.False(t, s.Equal(c))
	assert.Len(t, s, 2)
}

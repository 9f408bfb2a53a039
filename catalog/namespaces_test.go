package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacesAssign(t *testing.T) {
	n := NewNamespaces()
	require.NoError(t, n.Assign("physics", 2))
	require.NoError(t, n.Assign("physics", 0))
	require.NoError(t, n.Assign("physics", 2))
	require.NoError(t, n.Assign("biology", 1))
	require.NoError(t, n.Assign("", 3))

	assert.Equal(t, []uint32{0, 2}, n.Members("physics"))
	assert.Equal(t, []uint32{1}, n.Members("biology"))
	assert.Equal(t, []uint32{}, n.Members("chemistry"))
	assert.Equal(t, []string{"biology", "physics"}, n.Names())
	assert.Equal(t, map[string]int{"physics": 2, "biology": 1}, n.Counts())

	_, ok := n.Namespace(3)
	assert.False(t, ok, "global vectors are never members")

	ns, ok := n.Namespace(1)
	require.True(t, ok)
	assert.Equal(t, "biology", ns)
}

func TestNamespacesExclusive(t *testing.T) {
	n := NewNamespaces()
	require.NoError(t, n.Assign("a", 1))

	err := n.Assign("b", 1)
	assert.ErrorIs(t, err, ErrNamespaceConflict)
	assert.False(t, n.Contains("b", 1))
	assert.True(t, n.Contains("a", 1))
}

func TestNamespacesUnassign(t *testing.T) {
	n := NewNamespaces()
	require.NoError(t, n.Assign("a", 1))
	require.NoError(t, n.Assign("a", 4))

	assert.False(t, n.Unassign("b", 1))
	assert.True(t, n.Unassign("a", 1))
	assert.False(t, n.Unassign("a", 1))
	assert.Equal(t, []uint32{4}, n.Members("a"))

	assert.True(t, n.Unassign("a", 4))
	assert.Empty(t, n.Names())

	require.NoError(t, n.Assign("b", 1), "index is free again")
}

func TestNamespacesMapRoundTrip(t *testing.T) {
	n := NewNamespaces()
	require.NoError(t, n.Assign("a", 0))
	require.NoError(t, n.Assign("a", 3))
	require.NoError(t, n.Assign("b", 1))

	m := n.ToMap()
	assert.Equal(t, map[string][]uint32{"a": {0, 3}, "b": {1}}, m)

	restored, err := FromMap(m, 4)
	require.NoError(t, err)
	assert.Equal(t, m, restored.ToMap())
}

func TestFromMapValidation(t *testing.T) {
	_, err := FromMap(map[string][]uint32{"a": {0, 9}}, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = FromMap(map[string][]uint32{"a": {1}, "b": {1}}, 4)
	assert.ErrorIs(t, err, ErrNamespaceConflict)

	_, err = FromMap(map[string][]uint32{"": {1}}, 4)
	assert.Error(t, err)

	n, err := FromMap(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, n.Names())
}

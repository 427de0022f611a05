package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoStore_Scan(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "settings", "")
	writeDescriptor(t, root, "dock", "settings, window")

	// Subdirectory without a descriptor.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	// Stray file at the top level.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("hi"), 0o644))
	// Descriptor without a name.
	bad := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(DescriptorPath(bad), []byte("[plugin]\nauthor = nobody\n"), 0o644))

	s := NewInfoStore([]string{root}, silentLog())
	assert.Equal(t, 2, s.Scan())

	dock, ok := s.Lookup("dock")
	require.True(t, ok)
	assert.Equal(t, []string{"settings", "window"}, dock.Depends)
	assert.Equal(t, filepath.Join(root, "dock"), dock.Pathname)

	_, ok = s.Lookup("broken")
	assert.False(t, ok)
	_, ok = s.Lookup("assets")
	assert.False(t, ok)
}

func TestInfoStore_Scan_FirstPathWins(t *testing.T) {
	system := t.TempDir()
	user := t.TempDir()
	writeDescriptor(t, system, "dock", "")
	writeDescriptor(t, user, "dock", "settings")
	writeDescriptor(t, user, "lomo", "")

	s := NewInfoStore([]string{system, user}, silentLog())
	assert.Equal(t, 2, s.Scan())

	dock, ok := s.Lookup("dock")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(system, "dock"), dock.Pathname)
	assert.Empty(t, dock.Depends)

	_, ok = s.LookupPathname(filepath.Join(user, "dock"))
	assert.False(t, ok)
}

func TestInfoStore_Scan_MissingPath(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "settings", "")

	s := NewInfoStore([]string{filepath.Join(root, "nope"), "", root}, silentLog())
	assert.Equal(t, 1, s.Scan())
	assert.Len(t, s.SearchPaths(), 2)
}

func TestInfoStore_Scan_Replaces(t *testing.T) {
	root := t.TempDir()
	dir := writeDescriptor(t, root, "dock", "")

	s := NewInfoStore([]string{root}, silentLog())
	require.Equal(t, 1, s.Scan())

	require.NoError(t, os.RemoveAll(dir))
	writeDescriptor(t, root, "lomo", "")
	assert.Equal(t, 1, s.Scan())

	_, ok := s.Lookup("dock")
	assert.False(t, ok)
	_, ok = s.Lookup("lomo")
	assert.True(t, ok)
}

func TestInfoStore_QueryAll_ReturnsCopies(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "dock", "settings")

	s := NewInfoStore([]string{root}, silentLog())
	s.Scan()

	all := s.QueryAll()
	require.Len(t, all, 1)
	all[0].Depends[0] = "mutated"
	all[0].Name = "other"

	again, ok := s.Lookup("dock")
	require.True(t, ok)
	assert.Equal(t, []string{"settings"}, again.Depends)
}

func TestInfoStore_Contains(t *testing.T) {
	root := t.TempDir()
	s := NewInfoStore([]string{root}, silentLog())

	assert.True(t, s.Contains(root))
	assert.True(t, s.Contains(root+string(filepath.Separator)))
	assert.True(t, s.Contains(filepath.Join(root, "x", "..")))
	assert.False(t, s.Contains(filepath.Dir(root)))
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmilen/solsentry/internal/model"
)

func TestNewUnitLineIndex(t *testing.T) {
	t.Parallel()
	u := NewUnit("a.sol", "one\ntwo\nthree")
	assert.Equal(t, 3, u.LineCount())
	assert.Equal(t, 1, u.LineOf(0))
	assert.Equal(t, 1, u.LineOf(3)) // the newline itself
	assert.Equal(t, 2, u.LineOf(4))
	assert.Equal(t, 3, u.LineOf(len(u.Content)-1))
	assert.Equal(t, 1, u.LineOf(-5))
}

func TestLanguageByExtension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.LangSolidity, NewUnit("v.sol", "").Language)
	assert.Equal(t, model.LangMove, NewUnit("m.move", "").Language)
	assert.Equal(t, model.LangRust, NewUnit("p.rs", "").Language)
}

func TestDiscoverWalksNestedDirs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "contracts", "core")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	for _, f := range []string{
		filepath.Join(dir, "b.sol"),
		filepath.Join(sub, "a.sol"),
		filepath.Join(sub, "prog.rs"),
		filepath.Join(sub, "README.md"),
	} {
		require.NoError(t, os.WriteFile(f, []byte("contract X {}"), 0o644))
	}

	files, notes, err := Discover([]string{dir})
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.Len(t, files, 3, "only recognized extensions are analyzable")
	assert.True(t, sortedStrings(files))
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}

func TestDiscoverEmptyDir(t *testing.T) {
	t.Parallel()
	files, notes, err := Discover([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, notes)
}

func TestDiscoverSingleFileAndMissingRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	f := filepath.Join(dir, "only.move")
	require.NoError(t, os.WriteFile(f, []byte("module 0x1::m {}"), 0o644))

	files, _, err := Discover([]string{f})
	require.NoError(t, err)
	assert.Equal(t, []string{f}, files)

	_, _, err = Discover([]string{filepath.Join(dir, "gone")})
	assert.Error(t, err, "a missing root path is a configuration error")
}

func TestLoadAllSkipsOversizedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	small := filepath.Join(dir, "small.sol")
	big := filepath.Join(dir, "big.sol")
	require.NoError(t, os.WriteFile(small, []byte("contract S {}"), 0o644))
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0o644))

	set := LoadAll(context.Background(), []string{big, small}, 32)
	require.Len(t, set.Units, 1)
	assert.Equal(t, 1, set.Skipped)
	require.Len(t, set.Notes, 1)
	assert.Equal(t, "warning", set.Notes[0].Level)
}

func TestLoadAllDeterministicOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"c.sol", "a.sol", "b.sol"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("contract X {}"), 0o644))
		files = append(files, p)
	}
	set := LoadAll(context.Background(), files, 0)
	require.Len(t, set.Units, 3)
	assert.True(t, set.Units[0].Path < set.Units[1].Path && set.Units[1].Path < set.Units[2].Path)
}

package genome

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive_SaveLoadList(t *testing.T) {
	archive, err := NewArchive(filepath.Join(t.TempDir(), "genomes"))
	require.NoError(t, err)

	parent := testParent()
	require.NoError(t, archive.Save(parent))

	loaded, err := archive.Load(parent.GenomeID)
	require.NoError(t, err)
	assert.Equal(t, parent.GenomeID, loaded.GenomeID)
	assert.Equal(t, parent.SystemPrompt, loaded.SystemPrompt)

	all := archive.List()
	require.Len(t, all, 1)
	assert.Equal(t, parent.GenomeID, all[0].GenomeID)
}

func TestArchive_ListSkipsCorruptFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "genomes")
	archive, err := NewArchive(dir)
	require.NoError(t, err)

	require.NoError(t, archive.Save(testParent()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g-corrupt.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	all := archive.List()
	assert.Len(t, all, 1)
}

func TestArchive_Lineage(t *testing.T) {
	archive, err := NewArchive(filepath.Join(t.TempDir(), "genomes"))
	require.NoError(t, err)

	parent := testParent()
	require.NoError(t, archive.Save(parent))

	rng := rand.New(rand.NewSource(21))
	child, err := Mutate(parent, rng, 1.0)
	require.NoError(t, err)
	require.NoError(t, archive.Save(child))

	grandchild, err := Mutate(child, rng, 1.0)
	require.NoError(t, err)
	require.NoError(t, archive.Save(grandchild))

	chain := archive.Lineage(grandchild.GenomeID)
	require.Len(t, chain, 3)
	assert.Equal(t, grandchild.GenomeID, chain[0].GenomeID)
	assert.Equal(t, child.GenomeID, chain[1].GenomeID)
	assert.Equal(t, parent.GenomeID, chain[2].GenomeID)
}

func TestArchive_LineageStopsAtMissingAncestor(t *testing.T) {
	archive, err := NewArchive(filepath.Join(t.TempDir(), "genomes"))
	require.NoError(t, err)

	parent := testParent()
	child, err := Mutate(parent, rand.New(rand.NewSource(5)), 1.0)
	require.NoError(t, err)
	// Only the child is archived; the parent was never saved.
	require.NoError(t, archive.Save(child))

	chain := archive.Lineage(child.GenomeID)
	require.Len(t, chain, 1)
	assert.Equal(t, child.GenomeID, chain[0].GenomeID)
}

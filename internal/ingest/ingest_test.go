package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/santileortiz/dhtfs/internal/logger"
	"github.com/santileortiz/dhtfs/internal/store"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

type IngestTest struct {
	suite.Suite
	idx *tagindex.Index
	log *logger.Logger
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestTest))
}

func (t *IngestTest) SetupTest() {
	dir := t.T().TempDir()
	a, err := store.Open(filepath.Join(dir, ".tagindex"))
	require.NoError(t.T(), err)
	t.idx = tagindex.New(a)
	require.NoError(t.T(), t.idx.Init(false))
	t.log = logger.New(&bytes.Buffer{}, logger.INFO, "text")
}

func (t *IngestTest) writeTree(root string) {
	require.NoError(t.T(), os.MkdirAll(filepath.Join(root, "photos"), 0o755))
	require.NoError(t.T(), os.MkdirAll(filepath.Join(root, ".hidden"), 0o755))
	require.NoError(t.T(), os.WriteFile(filepath.Join(root, "photos", "a.jpg"), []byte("x"), 0o644))
	require.NoError(t.T(), os.WriteFile(filepath.Join(root, "photos", ".secret"), []byte("x"), 0o644))
	require.NoError(t.T(), os.WriteFile(filepath.Join(root, ".hidden", "b.txt"), []byte("x"), 0o644))
}

func (t *IngestTest) TestExplicitTagsAttached() {
	src := t.T().TempDir()
	t.writeTree(src)

	err := Walk(t.idx, t.log, src, src, []string{"imported"}, Options{Recursive: true})
	require.NoError(t.T(), err)

	files := t.idx.FilesOfTags([]string{"imported"})
	assert.Len(t.T(), files, 1)
	assert.Equal(t.T(), "a.jpg", files[0].DisplayName)
	assert.Equal(t.T(), filepath.Join("photos", "a.jpg"), files[0].BackingLocation)
}

func (t *IngestTest) TestHiddenDirsAndFilesSkippedByDefault() {
	src := t.T().TempDir()
	t.writeTree(src)

	err := Walk(t.idx, t.log, src, src, []string{"X"}, Options{Recursive: true})
	require.NoError(t.T(), err)

	files := t.idx.FilesOfTags([]string{"X"})
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.DisplayName
	}
	assert.NotContains(t.T(), names, ".secret")
	assert.NotContains(t.T(), names, "b.txt")
}

func (t *IngestTest) TestTagByPathUsesRelativeComponents() {
	src := t.T().TempDir()
	t.writeTree(src)

	err := Walk(t.idx, t.log, src, src, nil, Options{Recursive: true, TagByPath: true})
	require.NoError(t.T(), err)

	files := t.idx.FilesOfTags([]string{"photos"})
	assert.Len(t.T(), files, 1)
}

func (t *IngestTest) TestTagByMimeUsesExtension() {
	src := t.T().TempDir()
	t.writeTree(src)

	err := Walk(t.idx, t.log, src, src, nil, Options{Recursive: true, TagByMime: true})
	require.NoError(t.T(), err)

	files := t.idx.FilesOfTags([]string{"image"})
	assert.Len(t.T(), files, 1)
	assert.Equal(t.T(), "a.jpg", files[0].DisplayName)
}

func (t *IngestTest) TestNonRecursivePrunesDescent() {
	src := t.T().TempDir()
	t.writeTree(src)

	err := Walk(t.idx, t.log, src, src, []string{"top"}, Options{Recursive: false})
	require.NoError(t.T(), err)

	assert.Empty(t.T(), t.idx.FilesOfTags([]string{"top"}))
}

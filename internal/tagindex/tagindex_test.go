package tagindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/santileortiz/dhtfs/internal/store"
)

type IndexTest struct {
	suite.Suite
	idx *Index
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexTest))
}

func (t *IndexTest) SetupTest() {
	dir := t.T().TempDir()
	a, err := store.Open(filepath.Join(dir, ".tagindex"))
	require.NoError(t.T(), err)
	t.idx = New(a)
	require.NoError(t.T(), t.idx.Init(false))
}

func rec(name string) FileRecord {
	return FileRecord{BackingLocation: "f_" + name, DisplayName: name}
}

func (t *IndexTest) TestAttachRegistersTags() {
	require.NoError(t.T(), t.idx.Attach(nil, []string{"A"}))
	assert.Equal(t.T(), []string{"A"}, t.idx.AllTags())
	assert.Empty(t.T(), t.idx.FilesOfTags([]string{"A"}))
}

func (t *IndexTest) TestFilesOfEmptyTagsReturnsEverything() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"X"}))
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("b")}, []string{"Y"}))

	files := t.idx.FilesOfTags(nil)
	assert.Len(t.T(), files, 2)
}

func (t *IndexTest) TestFilesOfUnknownTagIsEmpty() {
	assert.Empty(t.T(), t.idx.FilesOfTags([]string{"nope"}))
	result := t.idx.Query([]string{"nope"}, Restrictive)
	assert.Empty(t.T(), result.ChildTags)
	assert.Empty(t.T(), result.Files)
}

func (t *IndexTest) TestNarrowingIsMonotone() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a"), rec("b")}, []string{"X"}))
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"Y"}))

	broad := t.idx.FilesOfTags([]string{"X"})
	narrow := t.idx.FilesOfTags([]string{"X", "Y"})
	assert.LessOrEqual(t.T(), len(narrow), len(broad))
	for _, f := range narrow {
		assert.Contains(t.T(), broad, f)
	}
}

func (t *IndexTest) TestAttachThenDetachReturnsToPriorState() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"X"}))
	before := t.idx.TagsOfFiles([]FileRecord{rec("a")})

	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"Y"}))
	require.NoError(t.T(), t.idx.DetachTagsFromFiles([]string{"Y"}, []FileRecord{rec("a")}))

	// The edges return to their prior state; Y itself stays registered,
	// since only RmDir removes a tag.
	after := t.idx.TagsOfFiles([]FileRecord{rec("a")})
	assert.ElementsMatch(t.T(), before, after)
	assert.Empty(t.T(), t.idx.FilesOfTags([]string{"Y"}))
}

// Scenario 3: files a, b, c under X; Y attached to a and b only.
func (t *IndexTest) TestScenarioThree() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a"), rec("b"), rec("c")}, []string{"X"}))
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a"), rec("b")}, []string{"Y"}))

	result := t.idx.Query([]string{"X"}, Restrictive)
	names := displayNames(result.Files)
	assert.ElementsMatch(t.T(), []string{"a", "b", "c"}, names)
	assert.ElementsMatch(t.T(), []string{"Y"}, result.ChildTags)

	resultY := t.idx.Query([]string{"X", "Y"}, Restrictive)
	assert.ElementsMatch(t.T(), []string{"a", "b"}, displayNames(resultY.Files))
}

// Scenario 5: 300 files under X, half also Y, half also Z -> cover mode
// yields exactly {Y, Z} with no leftover files.
func (t *IndexTest) TestScenarioFiveCoverYieldsExactCover() {
	var all []FileRecord
	for i := 0; i < 300; i++ {
		all = append(all, rec(string(rune('a'))+itoa(i)))
	}
	require.NoError(t.T(), t.idx.Attach(all, []string{"X"}))
	require.NoError(t.T(), t.idx.Attach(all[:150], []string{"Y"}))
	require.NoError(t.T(), t.idx.Attach(all[150:], []string{"Z"}))

	result := t.idx.Query([]string{"X"}, Cover)
	assert.ElementsMatch(t.T(), []string{"Y", "Z"}, result.ChildTags)
	assert.Empty(t.T(), result.Files)
}

func (t *IndexTest) TestCoverWithSingleFileReturnsFileDirectly() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("only")}, []string{"X"}))

	result := t.idx.Query([]string{"X"}, Cover)
	assert.Empty(t.T(), result.ChildTags)
	assert.ElementsMatch(t.T(), []string{"only"}, displayNames(result.Files))
}

func (t *IndexTest) TestRmDirRemovesTagButNotFiles() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"X", "Y"}))
	require.NoError(t.T(), t.idx.RmDir("X"))

	assert.NotContains(t.T(), t.idx.AllTags(), "X")
	assert.ElementsMatch(t.T(), []string{"Y"}, t.idx.TagsOfFiles([]FileRecord{rec("a")}))
}

func (t *IndexTest) TestPersistRoundTrip() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a"), rec("b")}, []string{"X", "Y"}))

	reloaded := New(t.idx.adapter)
	require.NoError(t.T(), reloaded.Load())

	assert.ElementsMatch(t.T(), t.idx.AllTags(), reloaded.AllTags())
	assert.ElementsMatch(t.T(), t.idx.FilesOfTags([]string{"X"}), reloaded.FilesOfTags([]string{"X"}))
}

func (t *IndexTest) TestUnlinkScenarioSix() {
	require.NoError(t.T(), t.idx.Attach([]FileRecord{rec("a")}, []string{"X", "Y"}))

	require.NoError(t.T(), t.idx.DetachTagsFromFiles([]string{"X"}, []FileRecord{rec("a")}))
	assert.ElementsMatch(t.T(), []string{"a"}, displayNames(t.idx.FilesOfTags([]string{"Y"})))

	require.NoError(t.T(), t.idx.DetachTagsFromFiles([]string{"Y"}, []FileRecord{rec("a")}))
	assert.Empty(t.T(), t.idx.TagsOfFiles([]FileRecord{rec("a")}))
}

func displayNames(files []FileRecord) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.DisplayName
	}
	return out
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

package resolver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/santileortiz/dhtfs/internal/store"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

type ResolverTest struct {
	suite.Suite
	idx *tagindex.Index
	res *Resolver
	root string
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTest))
}

func (t *ResolverTest) SetupTest() {
	dir := t.T().TempDir()
	a, err := store.Open(filepath.Join(dir, ".tagindex"))
	require.NoError(t.T(), err)
	t.idx = tagindex.New(a)
	require.NoError(t.T(), t.idx.Init(false))
	t.root = dir
	t.res = New(dir, t.idx)
}

func (t *ResolverTest) TestRoot() {
	res := t.res.Resolve("/")
	assert.Equal(t.T(), KindRoot, res.Kind)
	assert.Equal(t.T(), t.root, res.BackingPath)
}

func (t *ResolverTest) TestKnownTag() {
	require.NoError(t.T(), t.idx.Attach(nil, []string{"A"}))

	res := t.res.Resolve("/A")
	assert.Equal(t.T(), KindTagDir, res.Kind)
	assert.Equal(t.T(), "A", res.Tag)
	assert.Equal(t.T(), filepath.Join(t.root, "t_A"), res.BackingPath)
}

func (t *ResolverTest) TestFileUnderTags() {
	rec := tagindex.FileRecord{BackingLocation: "f_1", DisplayName: "hello.txt"}
	require.NoError(t.T(), t.idx.Attach([]tagindex.FileRecord{rec}, []string{"A"}))

	res := t.res.Resolve("/A/hello.txt")
	assert.Equal(t.T(), KindFile, res.Kind)
	assert.Equal(t.T(), []string{"A"}, res.ParentTags)
	assert.Equal(t.T(), filepath.Join(t.root, "f_1"), res.BackingPath)
}

func (t *ResolverTest) TestMissingResolvesToSentinel() {
	require.NoError(t.T(), t.idx.Attach(nil, []string{"A"}))

	res := t.res.Resolve("/A/nope.txt")
	assert.Equal(t.T(), KindMissing, res.Kind)
	assert.Equal(t.T(), []string{"A"}, res.ParentTags)
	assert.Equal(t.T(), filepath.Join(t.root, MissingFile), res.BackingPath)
}

func (t *ResolverTest) TestCacheHitShortCircuits() {
	rec := tagindex.FileRecord{BackingLocation: "f_1", DisplayName: "hello.txt"}
	require.NoError(t.T(), t.idx.Attach([]tagindex.FileRecord{rec}, []string{"A"}))

	result := t.idx.Query([]string{"A"}, tagindex.Restrictive)
	t.res.Cache().Populate(t.root, "/A", result)

	res := t.res.Resolve("/A/hello.txt")
	assert.Equal(t.T(), KindFile, res.Kind)
	assert.Equal(t.T(), filepath.Join(t.root, "f_1"), res.BackingPath)
	assert.Equal(t.T(), rec, res.Record)
}

func (t *ResolverTest) TestCacheClearedForcesReresolution() {
	rec := tagindex.FileRecord{BackingLocation: "f_1", DisplayName: "hello.txt"}
	require.NoError(t.T(), t.idx.Attach([]tagindex.FileRecord{rec}, []string{"A"}))
	result := t.idx.Query([]string{"A"}, tagindex.Restrictive)
	t.res.Cache().Populate(t.root, "/A", result)

	t.res.Cache().Clear()

	res := t.res.Resolve("/A/hello.txt")
	assert.Equal(t.T(), KindFile, res.Kind)
}

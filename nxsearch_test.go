package nxsearch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toloco/nxsearch/filter"
	"github.com/toloco/nxsearch/index"
)

var englishStopwords = []byte(
	"the\na\nan\nis\nover\nonce\nupon\nthere\nwere\n")

// newTestBasedir creates a base directory with English stop words.
func newTestBasedir(t *testing.T) string {
	t.Helper()

	basedir := t.TempDir()
	dir := filepath.Join(basedir, "filters", "stopwords")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en"), englishStopwords, 0o644))
	return basedir
}

func docIDs(results []index.Result) []uint64 {
	ids := make([]uint64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.DocID)
	}
	return ids
}

func TestEngineEndToEnd(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	idx, err := engine.OpenIndex("test-idx")
	require.NoError(t, err)

	require.NoError(t, idx.Add(1, []byte("The quick brown fox jumped over the lazy dog")))
	require.NoError(t, idx.Add(2, []byte("Once upon a time there were three little foxes")))

	results, err := idx.Search([]byte("dog"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))

	// "fox" and "foxes" share a stem.
	results, err = idx.Search([]byte("fox"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, docIDs(results))

	// A pure stop-word query is empty, not an error.
	results, err = idx.Search([]byte("the"))
	require.NoError(t, err)
	assert.Empty(t, results)

	// Case folding happens in the query pipeline too.
	results, err = idx.Search([]byte("Dog"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))
}

func TestEngineReopenIndex(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	idx, err := engine.OpenIndex("persist")
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []byte("The quick brown fox jumped over the lazy dog")))
	require.NoError(t, idx.Add(2, []byte("Once upon a time there were three little foxes")))

	require.NoError(t, engine.CloseIndex("persist"))

	idx, err = engine.OpenIndex("persist")
	require.NoError(t, err)

	results, err := idx.Search([]byte("fox"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, docIDs(results))
}

func TestEngineDuplicateFilterRegistration(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	idx, err := engine.OpenIndex("docs")
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []byte("quick brown fox")))

	err = engine.RegisterFilter("normalizer", filter.NewNormalizer())
	assert.ErrorIs(t, err, filter.ErrFilterExists)

	// Existing pipelines are unaffected.
	results, err := idx.Search([]byte("Fox"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))
}

func TestEngineDuplicateDocument(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	idx, err := engine.OpenIndex("docs")
	require.NoError(t, err)

	require.NoError(t, idx.Add(1, []byte("The quick brown fox jumped over the lazy dog")))
	err = idx.Add(1, []byte("The quick brown fox jumped over the lazy dog"))
	assert.ErrorIs(t, err, index.ErrDocExists)

	results, err := idx.Search([]byte("dog"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))
	assert.Equal(t, 1, idx.DocCount())
}

func TestEngineOpenIndexTwice(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	first, err := engine.OpenIndex("same")
	require.NoError(t, err)
	second, err := engine.OpenIndex("same")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestEngineInvalidIndexName(t *testing.T) {
	engine, err := Open(newTestBasedir(t))
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.OpenIndex("")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = engine.OpenIndex("../escape")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestEngineCloseIndexUnknown(t *testing.T) {
	engine, err := Open(newTestBasedir(t))
	require.NoError(t, err)
	defer engine.Close()

	err = engine.CloseIndex("never-opened")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestEngineClosed(t *testing.T) {
	engine, err := Open(newTestBasedir(t))
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	_, err = engine.OpenIndex("late")
	assert.ErrorIs(t, err, ErrEngineClosed)

	// Close is idempotent.
	assert.NoError(t, engine.Close())
}

func TestEngineConfigFile(t *testing.T) {
	basedir := newTestBasedir(t)
	cfg := []byte("language: en\nfilters: [normalizer]\n")
	require.NoError(t, os.WriteFile(filepath.Join(basedir, configFile), cfg, 0o644))

	engine, err := Open(basedir)
	require.NoError(t, err)
	defer engine.Close()

	idx, err := engine.OpenIndex("raw")
	require.NoError(t, err)

	// Without the stop-word and stemmer stages, "the" indexes and
	// "foxes" keeps its surface form.
	require.NoError(t, idx.Add(1, []byte("The foxes")))

	results, err := idx.Search([]byte("the"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))

	results, err = idx.Search([]byte("fox"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineUnsupportedLanguage(t *testing.T) {
	engine, err := Open(newTestBasedir(t))
	require.NoError(t, err)
	defer engine.Close()

	// The stemmer has no Snowball binding for this language, so
	// pipeline construction fails.
	_, err = engine.OpenIndex("greek", WithIndexLanguage("el"))
	assert.ErrorIs(t, err, filter.ErrFilterInit)
}

// upcase is a caller-supplied filter used to exercise the extension
// point.
type upcase struct{}

func (upcase) Create(lang string) (filter.Context, error) {
	return upcaseContext{}, nil
}

type upcaseContext struct{}

func (upcaseContext) Filter(buf *filter.Buffer) filter.Action {
	value := buf.Value()
	for i, b := range value {
		if b >= 'a' && b <= 'z' {
			value[i] = b - 'a' + 'A'
		}
	}
	return filter.Mutation
}

func (upcaseContext) Destroy() {}

func TestEngineCustomFilter(t *testing.T) {
	basedir := newTestBasedir(t)

	engine, err := Open(basedir, WithFilters("upcase"))
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.RegisterFilter("upcase", upcase{}))

	idx, err := engine.OpenIndex("shouting")
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []byte("hello world")))

	results, err := idx.Search([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, docIDs(results))
	assert.Equal(t, uint64(1), idx.TermTotal("HELLO"))
}

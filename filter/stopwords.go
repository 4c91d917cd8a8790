package filter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// StopwordStore holds the per-language stop-word sets. It is loaded
// once at engine initialization and shared immutably by all indexes
// under the engine.
type StopwordStore struct {
	langs map[string]map[string]struct{}
}

// NewStopwordStore creates a store from in-memory word lists, keyed
// by language code.
func NewStopwordStore(lists map[string][]string) *StopwordStore {
	store := &StopwordStore{
		langs: make(map[string]map[string]struct{}, len(lists)),
	}
	for lang, words := range lists {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		store.langs[lang] = set
	}
	return store
}

// LoadStopwords reads the stop-word dictionaries from
// <basedir>/filters/stopwords/<lang>, one word per line. A missing
// directory or file is not an error: affected languages simply get an
// empty set.
func LoadStopwords(basedir string) (*StopwordStore, error) {
	store := &StopwordStore{
		langs: make(map[string]map[string]struct{}),
	}
	dir := filepath.Join(basedir, "filters", "stopwords")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("reading stopwords directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := entry.Name()
		set, err := loadStopwordFile(filepath.Join(dir, lang))
		if err != nil {
			return nil, fmt.Errorf("loading stopwords for %q: %w", lang, err)
		}
		store.langs[lang] = set
	}
	return store, nil
}

func loadStopwordFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := scanner.Text()
		if word == "" {
			continue
		}
		set[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// Lookup returns the stop-word set for the language, or nil.
func (s *StopwordStore) Lookup(lang string) map[string]struct{} {
	return s.langs[lang]
}

// Stopwords is the built-in stop-word filter. Matching is byte-exact
// against already-normalized tokens, so the normalizer must precede
// it in any standard pipeline.
type Stopwords struct {
	store *StopwordStore
}

// NewStopwords creates the stop-word filter backed by the store.
func NewStopwords(store *StopwordStore) *Stopwords {
	return &Stopwords{store: store}
}

// Create returns a context holding the language's stop-word set. A
// language with no stop words gets an empty set, not an error.
func (f *Stopwords) Create(lang string) (Context, error) {
	return &stopwordsContext{words: f.store.Lookup(lang)}, nil
}

type stopwordsContext struct {
	words map[string]struct{}
}

// Filter drops the token if it is a stop word, otherwise passes it
// through unchanged.
func (c *stopwordsContext) Filter(buf *Buffer) Action {
	if _, ok := c.words[string(buf.Value())]; ok {
		return Drop
	}
	return Mutation
}

func (c *stopwordsContext) Destroy() {}

var _ Filter = (*Stopwords)(nil)

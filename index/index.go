package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/toloco/nxsearch/filter"
)

const (
	termStoreFile  = "terms.db"
	postingLogFile = "postings.log"
)

// Index is a single inverted index: a filter pipeline, the in-memory
// term dictionary, the memory-mapped term store, and the posting log.
// One writer may Add concurrently with any number of Search readers.
type Index struct {
	name     string
	dir      string
	log      zerolog.Logger
	pipeline *filter.Pipeline
	tokenize Tokenizer

	mu     sync.RWMutex
	dict   dictionary
	store  *termStore
	plog   *postingLog
	docs   map[uint64]uint32
	closed bool
}

// Option configures an Index.
type Option func(*Index)

// WithPipeline sets the filter pipeline. The index takes ownership
// and destroys it on Close. A nil pipeline disables filtering.
func WithPipeline(p *filter.Pipeline) Option {
	return func(idx *Index) {
		idx.pipeline = p
	}
}

// WithTokenizer replaces the default word tokenizer.
func WithTokenizer(tokenize Tokenizer) Option {
	return func(idx *Index) {
		idx.tokenize = tokenize
	}
}

// WithLogger sets the index logger.
func WithLogger(log zerolog.Logger) Option {
	return func(idx *Index) {
		idx.log = log
	}
}

// WithName sets the index name used in log events.
func WithName(name string) Option {
	return func(idx *Index) {
		idx.name = name
	}
}

// Open opens the index stored in dir, creating it if needed, and
// replays the persistent state into memory: the term store rebuilds
// the dictionary, the posting log rebuilds the document registry and
// the posting bitmaps.
func Open(dir string, opts ...Option) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx := &Index{
		name:     filepath.Base(dir),
		dir:      dir,
		log:      zerolog.Nop(),
		tokenize: ScanTokens,
		dict:     newDictionary(),
		docs:     make(map[uint64]uint32),
	}
	for _, opt := range opts {
		opt(idx)
	}

	store, err := openTermStore(filepath.Join(dir, termStoreFile))
	if err != nil {
		return nil, err
	}
	idx.store = store

	err = store.each(func(slot uint32, value []byte) error {
		term, err := idx.dict.createTerm(value, uint64(slot)*counterSize)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		idx.dict.assignID(term, slot+1)
		return nil
	})
	if err != nil {
		store.close()
		return nil, err
	}

	plog, err := openPostingLog(filepath.Join(dir, postingLogFile))
	if err != nil {
		store.close()
		return nil, err
	}
	idx.plog = plog

	err = plog.replay(
		func(termID uint32, docID uint64) error {
			if err := idx.dict.addDocByID(termID, docID); err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			return nil
		},
		func(docID uint64, tokens uint32) error {
			idx.docs[docID] = tokens
			return nil
		},
	)
	if err != nil {
		plog.close()
		store.close()
		return nil, err
	}

	idx.log.Debug().
		Str("index", idx.name).
		Int("terms", len(idx.dict.termList)).
		Int("docs", len(idx.docs)).
		Msg("index opened")
	return idx, nil
}

// Name returns the index name.
func (idx *Index) Name() string {
	return idx.name
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// TermTotal returns the total number of occurrences indexed for the
// term value, or zero for an unknown term.
func (idx *Index) TermTotal(value string) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	term := idx.dict.lookup([]byte(value))
	if term == nil {
		return 0
	}
	return idx.store.counter(term.offset)
}

// Add indexes one document: the text is tokenized, each token is run
// through the filter pipeline, surviving tokens are resolved against
// the dictionary, new terms are appended to the persistent store and
// assigned IDs in token order, and every surviving token adds the
// document to its term's posting bitmap and bumps the occurrence
// counter.
func (idx *Index) Add(docID uint64, text []byte) error {
	if !utf8.Valid(text) {
		return fmt.Errorf("%w: document %d", ErrInvalidUTF8, docID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	if _, ok := idx.docs[docID]; ok {
		return fmt.Errorf("%w: %d", ErrDocExists, docID)
	}
	idx.docs[docID] = 0

	err := idx.addLocked(docID, text)
	if err != nil {
		// The document registration rolls back; terms already
		// appended to the store keep their IDs with no document
		// references, which is harmless.
		delete(idx.docs, docID)
		return err
	}
	return nil
}

func (idx *Index) addLocked(docID uint64, text []byte) error {
	ts := NewTokenStream()
	idx.tokenize(text, ts)

	if err := idx.runPipeline(ts); err != nil {
		return err
	}
	idx.dict.resolveTokens(ts, true)

	// Create terms for staged tokens in original order, deduplicating
	// values repeated within this document.
	for _, tok := range ts.Staging() {
		value := tok.Buffer().Value()
		if term := idx.dict.lookup(value); term != nil {
			tok.term = term
			continue
		}
		id, offset, err := idx.store.append(value)
		if err != nil {
			return err
		}
		term, err := idx.dict.createTerm(value, offset)
		if err != nil {
			return err
		}
		idx.dict.assignID(term, id)
		tok.term = term
		idx.log.Debug().
			Str("index", idx.name).
			Str("term", term.value).
			Uint32("term_id", term.id).
			Msg("term created")
	}

	tokens := make([]*Token, 0, ts.Len())
	tokens = append(tokens, ts.Active()...)
	tokens = append(tokens, ts.Staging()...)

	if err := idx.plog.appendDoc(docID, uint32(len(tokens))); err != nil {
		return fmt.Errorf("writing posting log: %w", err)
	}
	for _, tok := range tokens {
		if err := idx.plog.appendPosting(tok.term.id, docID); err != nil {
			return fmt.Errorf("writing posting log: %w", err)
		}
	}
	if err := idx.plog.flush(); err != nil {
		return fmt.Errorf("flushing posting log: %w", err)
	}

	for _, tok := range tokens {
		tok.term.docs.Add(docID)
		idx.store.incr(tok.term.offset, 1)
	}
	idx.docs[docID] = uint32(len(tokens))

	idx.log.Debug().
		Str("index", idx.name).
		Uint64("doc_id", docID).
		Int("tokens", len(tokens)).
		Msg("document indexed")
	return nil
}

// runPipeline applies the filter pipeline to every active token.
// Dropped tokens are removed from the stream; a filter error aborts
// the whole operation.
func (idx *Index) runPipeline(ts *TokenStream) error {
	if idx.pipeline == nil {
		return nil
	}
	kept := ts.active[:0]
	for _, tok := range ts.active {
		switch idx.pipeline.Run(tok.buf) {
		case filter.Mutation:
			kept = append(kept, tok)
		case filter.Drop:
			// removed from the stream
		case filter.Error:
			ts.active = kept
			return fmt.Errorf("%w: token %q", ErrFilterFailed, tok.buf.String())
		}
	}
	ts.active = kept
	return nil
}

// Close destroys the pipeline, flushes and unmaps the term store, and
// closes the posting log. The index must not be used afterwards.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	if idx.pipeline != nil {
		idx.pipeline.Destroy()
	}
	var firstErr error
	if err := idx.plog.close(); err != nil {
		firstErr = err
	}
	if err := idx.store.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	idx.log.Debug().Str("index", idx.name).Msg("index closed")
	return firstErr
}

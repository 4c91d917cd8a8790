package index

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Dictionary and protocol errors.
var (
	// ErrTermExists is returned when creating a term whose value is
	// already in the dictionary. It indicates a logic bug above the
	// dictionary and is surfaced rather than recovered.
	ErrTermExists = errors.New("term already exists")
	// ErrTermNotFound is returned when a term ID is not in the
	// dictionary.
	ErrTermNotFound = errors.New("term not found")
	// ErrDocExists is returned when adding a document whose ID is
	// already registered.
	ErrDocExists = errors.New("document already indexed")
	// ErrCorrupt is returned when the persistent state fails
	// validation.
	ErrCorrupt = errors.New("index file is corrupt")
	// ErrInvalidUTF8 is returned for text that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")
	// ErrFilterFailed is returned when a filter reports an error for
	// a token.
	ErrFilterFailed = errors.New("filter pipeline failed")
	// ErrClosed is returned for operations on a closed index.
	ErrClosed = errors.New("index is closed")
)

// Term is a normalized, filter-processed token: the atomic unit of the
// inverted index. The ID is non-zero once assigned and stable for the
// lifetime of the index; the offset addresses the term's occurrence
// counter inside the persistent store's counter region.
type Term struct {
	value  string
	id     uint32
	offset uint64
	docs   *roaring64.Bitmap
}

// Value returns the canonical term value.
func (t *Term) Value() string {
	return t.value
}

// ID returns the term ID, or zero if unassigned.
func (t *Term) ID() uint32 {
	return t.id
}

// DocCount returns the number of documents containing the term.
func (t *Term) DocCount() uint64 {
	return t.docs.GetCardinality()
}

// dictionary is the in-memory term dictionary: a value-keyed map for
// tokenization-time resolution, an ID-keyed map for posting-list
// updates during replay, and an insertion-ordered list matching the
// persistent store.
type dictionary struct {
	termMap  map[string]*Term
	tdMap    map[uint32]*Term
	termList []*Term
}

func newDictionary() dictionary {
	return dictionary{
		termMap: make(map[string]*Term),
		tdMap:   make(map[uint32]*Term),
	}
}

// createTerm allocates a term with an unassigned ID and an empty
// posting bitmap, and inserts it into the value map and the tail of
// the term list.
func (d *dictionary) createTerm(value []byte, offset uint64) (*Term, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: empty term value", ErrCorrupt)
	}
	key := string(value)
	if _, ok := d.termMap[key]; ok {
		return nil, fmt.Errorf("%w: %q", ErrTermExists, key)
	}
	term := &Term{
		value:  key,
		offset: offset,
		docs:   roaring64.NewBitmap(),
	}
	d.termMap[key] = term
	d.termList = append(d.termList, term)
	return term, nil
}

// assignID sets the term ID and maps it to the term object. The term
// must not have an ID yet and the ID must be unused.
func (d *dictionary) assignID(term *Term, id uint32) {
	term.id = id
	d.tdMap[id] = term
}

// lookup finds the term for a token value, or nil.
func (d *dictionary) lookup(value []byte) *Term {
	return d.termMap[string(value)]
}

// lookupID finds the term for an ID, or nil.
func (d *dictionary) lookupID(id uint32) *Term {
	return d.tdMap[id]
}

// resolveTokens associates each active token with its term. Tokens
// without a term are moved to the staging list, preserving order,
// when stage is true.
func (d *dictionary) resolveTokens(ts *TokenStream, stage bool) {
	kept := ts.active[:0]
	for _, tok := range ts.active {
		term := d.lookup(tok.buf.Value())
		tok.term = term
		if term == nil && stage {
			ts.staging = append(ts.staging, tok)
			continue
		}
		kept = append(kept, tok)
	}
	ts.active = kept
}

// addDocByID adds a document to a term's posting bitmap, keyed by the
// term ID. Used when replaying persistent state.
func (d *dictionary) addDocByID(termID uint32, docID uint64) error {
	term := d.lookupID(termID)
	if term == nil {
		return fmt.Errorf("%w: id %d", ErrTermNotFound, termID)
	}
	term.docs.Add(docID)
	return nil
}

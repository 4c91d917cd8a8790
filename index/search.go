package index

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"
)

// Result is one scored document in a search result set.
type Result struct {
	DocID uint64
	Score float64
}

// Search evaluates a keyword query. The query text goes through the
// same tokenizer and filter pipeline as indexing, the resolved terms'
// posting bitmaps are intersected (conjunctive semantics), and the
// candidates are scored with a tf-idf sum where the term frequency is
// approximated as one. Results are ordered by score descending, then
// by document ID ascending. Query terms not present in the index are
// discarded; a query with no resolved terms yields an empty result.
func (idx *Index) Search(text []byte) ([]Result, error) {
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w: query", ErrInvalidUTF8)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}

	ts := NewTokenStream()
	idx.tokenize(text, ts)
	if err := idx.runPipeline(ts); err != nil {
		return nil, err
	}
	idx.dict.resolveTokens(ts, false)

	// Deduplicate the resolved terms, preserving query order.
	seen := make(map[uint32]struct{})
	var terms []*Term
	for _, tok := range ts.Active() {
		term := tok.Term()
		if term == nil {
			continue
		}
		if _, ok := seen[term.id]; ok {
			continue
		}
		seen[term.id] = struct{}{}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	sets := make([]*roaring64.Bitmap, len(terms))
	for i, term := range terms {
		sets[i] = term.docs
	}
	candidates := roaring64.FastAnd(sets...)
	if candidates.IsEmpty() {
		return nil, nil
	}

	// Every candidate contains every query term, so with tf fixed at
	// one the score reduces to the summed idf of the query terms.
	n := float64(len(idx.docs))
	var score float64
	for _, term := range terms {
		score += math.Log(n / float64(term.DocCount()))
	}

	results := make([]Result, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		results = append(results, Result{DocID: it.Next(), Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	idx.log.Debug().
		Str("index", idx.name).
		Str("query_id", uuid.NewString()).
		Str("query", string(text)).
		Int("terms", len(terms)).
		Int("hits", len(results)).
		Msg("query evaluated")
	return results, nil
}

// Package index implements the indexing core: token streams, the term
// dictionary, the persistent memory-mapped term store, and the
// indexing and query protocols built on top of them.
package index

import (
	"github.com/toloco/nxsearch/filter"
)

// Token is a single tokenizer output: a mutable buffer plus a
// back-pointer to its resolved term, set during resolution.
type Token struct {
	buf  *filter.Buffer
	term *Term
}

// Buffer returns the token's byte buffer.
func (t *Token) Buffer() *filter.Buffer {
	return t.buf
}

// Term returns the resolved term, or nil before resolution.
func (t *Token) Term() *Term {
	return t.term
}

// TokenStream owns an ordered sequence of tokens with two partitions:
// the active list and a staging list for tokens whose terms do not yet
// exist in the dictionary. A stream lives for a single document add or
// query.
type TokenStream struct {
	active  []*Token
	staging []*Token
}

// NewTokenStream creates an empty token stream.
func NewTokenStream() *TokenStream {
	return &TokenStream{}
}

// Append creates a token holding a copy of value and adds it to the
// tail of the active list.
func (ts *TokenStream) Append(value []byte) *Token {
	tok := &Token{buf: filter.NewBuffer(value)}
	ts.active = append(ts.active, tok)
	return tok
}

// Active returns the active tokens in insertion order.
func (ts *TokenStream) Active() []*Token {
	return ts.active
}

// Staging returns the staged tokens in original insertion order.
func (ts *TokenStream) Staging() []*Token {
	return ts.staging
}

// Len returns the total number of tokens in the stream.
func (ts *TokenStream) Len() int {
	return len(ts.active) + len(ts.staging)
}

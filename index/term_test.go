package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryCreateAndAssign(t *testing.T) {
	dict := newDictionary()

	term, err := dict.createTerm([]byte("fox"), 0)
	require.NoError(t, err)
	assert.Equal(t, "fox", term.Value())
	assert.Zero(t, term.ID())
	assert.Zero(t, term.DocCount())

	// Not in the ID map until assigned.
	assert.Nil(t, dict.lookupID(1))

	dict.assignID(term, 1)
	assert.Equal(t, uint32(1), term.ID())
	assert.Same(t, term, dict.lookupID(1))
	assert.Same(t, term, dict.lookup([]byte("fox")))
}

func TestDictionaryDuplicate(t *testing.T) {
	dict := newDictionary()

	_, err := dict.createTerm([]byte("fox"), 0)
	require.NoError(t, err)

	_, err = dict.createTerm([]byte("fox"), 8)
	assert.ErrorIs(t, err, ErrTermExists)
}

func TestDictionaryEmptyValue(t *testing.T) {
	dict := newDictionary()

	_, err := dict.createTerm(nil, 0)
	assert.Error(t, err)
}

func TestDictionaryInsertionOrder(t *testing.T) {
	dict := newDictionary()

	for i, value := range []string{"c", "a", "b"} {
		term, err := dict.createTerm([]byte(value), uint64(i)*counterSize)
		require.NoError(t, err)
		dict.assignID(term, uint32(i+1))
	}

	require.Len(t, dict.termList, 3)
	assert.Equal(t, "c", dict.termList[0].Value())
	assert.Equal(t, "a", dict.termList[1].Value())
	assert.Equal(t, "b", dict.termList[2].Value())

	// IDs form the contiguous range [1, T] in insertion order.
	for i, term := range dict.termList {
		assert.Equal(t, uint32(i+1), term.ID())
	}
}

func TestResolveTokensStaging(t *testing.T) {
	dict := newDictionary()
	known, err := dict.createTerm([]byte("known"), 0)
	require.NoError(t, err)
	dict.assignID(known, 1)

	ts := NewTokenStream()
	ScanTokens([]byte("known new known other new"), ts)

	dict.resolveTokens(ts, true)

	require.Len(t, ts.Active(), 2)
	for _, tok := range ts.Active() {
		assert.Same(t, known, tok.Term())
	}

	// Staging preserves original order, duplicates included.
	staged := ts.Staging()
	require.Len(t, staged, 3)
	assert.Equal(t, "new", staged[0].Buffer().String())
	assert.Equal(t, "other", staged[1].Buffer().String())
	assert.Equal(t, "new", staged[2].Buffer().String())
	for _, tok := range staged {
		assert.Nil(t, tok.Term())
	}
}

func TestResolveTokensNoStaging(t *testing.T) {
	dict := newDictionary()
	known, err := dict.createTerm([]byte("known"), 0)
	require.NoError(t, err)
	dict.assignID(known, 1)

	ts := NewTokenStream()
	ScanTokens([]byte("known missing"), ts)

	dict.resolveTokens(ts, false)

	// Unresolved tokens stay in the active list with a nil term.
	require.Len(t, ts.Active(), 2)
	assert.Same(t, known, ts.Active()[0].Term())
	assert.Nil(t, ts.Active()[1].Term())
	assert.Empty(t, ts.Staging())
}

func TestAddDocByID(t *testing.T) {
	dict := newDictionary()
	term, err := dict.createTerm([]byte("fox"), 0)
	require.NoError(t, err)
	dict.assignID(term, 1)

	require.NoError(t, dict.addDocByID(1, 42))
	assert.True(t, term.docs.Contains(42))
	assert.Equal(t, uint64(1), term.DocCount())

	err = dict.addDocByID(9, 42)
	assert.ErrorIs(t, err, ErrTermNotFound)
}

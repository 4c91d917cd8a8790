package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenValues(ts *TokenStream) []string {
	var values []string
	for _, tok := range ts.Active() {
		values = append(values, tok.Buffer().String())
	}
	return values
}

func TestScanTokens(t *testing.T) {
	ts := NewTokenStream()
	ScanTokens([]byte("The quick, brown fox! jumped-over 2 dogs."), ts)

	assert.Equal(t,
		[]string{"The", "quick", "brown", "fox", "jumped", "over", "2", "dogs"},
		tokenValues(ts))
}

func TestScanTokensUnicode(t *testing.T) {
	ts := NewTokenStream()
	ScanTokens([]byte("naïve café, résumé"), ts)

	assert.Equal(t, []string{"naïve", "café", "résumé"}, tokenValues(ts))
}

func TestScanTokensEmpty(t *testing.T) {
	ts := NewTokenStream()
	ScanTokens(nil, ts)
	assert.Empty(t, ts.Active())

	ScanTokens([]byte("  ... !!! "), ts)
	assert.Empty(t, ts.Active())
}

func TestScanTokensLongRunSkipped(t *testing.T) {
	ts := NewTokenStream()
	long := strings.Repeat("x", maxTokenLen+1)
	ScanTokens([]byte("ok "+long+" fine"), ts)

	assert.Equal(t, []string{"ok", "fine"}, tokenValues(ts))
}

package filter

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is the built-in token normalizer. It applies Unicode
// case folding and NFKC normalization to the token buffer.
type Normalizer struct{}

// NewNormalizer creates the normalizer filter.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Create returns a per-pipeline normalizer context.
func (*Normalizer) Create(lang string) (Context, error) {
	return &normalizerContext{}, nil
}

type normalizerContext struct{}

// Filter lowercases and NFKC-normalizes the buffer. Tokens that are
// not valid UTF-8 produce an Error action.
func (*normalizerContext) Filter(buf *Buffer) Action {
	value := buf.Value()
	if !utf8.Valid(value) {
		return Error
	}
	// cases.Caser carries internal state, so a fresh one is used per
	// call rather than shared across concurrent queries.
	folded := cases.Fold().String(string(value))
	buf.AcquireString(norm.NFKC.String(folded))
	return Mutation
}

func (*normalizerContext) Destroy() {}

var _ Filter = (*Normalizer)(nil)

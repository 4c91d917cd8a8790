package index

import (
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits text into tokens, appending them to the stream.
// The default is ScanTokens; callers may supply their own via
// WithTokenizer as long as the emitted buffers are valid UTF-8.
type Tokenizer func(text []byte, ts *TokenStream)

// maxTokenLen caps a single token. Longer runs are almost never real
// words and would bloat the term dictionary.
const maxTokenLen = 256

// ScanTokens is the default word tokenizer: it emits maximal runs of
// Unicode letters and digits, skipping everything else.
func ScanTokens(text []byte, ts *TokenStream) {
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRune(text[i:])
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			emitToken(text[start:i], ts)
			start = -1
		}
		i += size
	}
	if start >= 0 {
		emitToken(text[start:], ts)
	}
}

func emitToken(word []byte, ts *TokenStream) {
	if len(word) > maxTokenLen {
		return
	}
	ts.Append(word)
}

package filter

import (
	"fmt"

	"github.com/kljensen/snowball"
)

// snowballLanguages maps ISO 639-1 codes to the language names the
// snowball library understands.
var snowballLanguages = map[string]string{
	"en": "english",
	"es": "spanish",
	"fr": "french",
	"hu": "hungarian",
	"no": "norwegian",
	"ru": "russian",
	"sv": "swedish",
}

// Stemmer is the built-in Snowball stemmer filter.
type Stemmer struct{}

// NewStemmer creates the stemmer filter.
func NewStemmer() *Stemmer {
	return &Stemmer{}
}

// Create returns a stemmer context bound to the language. Languages
// without a Snowball stemmer fail pipeline construction.
func (*Stemmer) Create(lang string) (Context, error) {
	name, ok := snowballLanguages[lang]
	if !ok {
		return nil, fmt.Errorf("no stemmer for language %q", lang)
	}
	return &stemmerContext{language: name}, nil
}

type stemmerContext struct {
	language string
}

// Filter replaces the buffer contents with the stemmed token. The
// stemmed bytes are copied into the token's own buffer.
func (c *stemmerContext) Filter(buf *Buffer) Action {
	stemmed, err := snowball.Stem(buf.String(), c.language, true)
	if err != nil {
		return Error
	}
	buf.AcquireString(stemmed)
	return Mutation
}

func (c *stemmerContext) Destroy() {}

var _ Filter = (*Stemmer)(nil)

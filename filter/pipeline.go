package filter

import (
	"fmt"
)

// Pipeline is an immutable, language-bound ordered list of filter
// contexts. It is created once per index and destroyed with it.
type Pipeline struct {
	lang     string
	contexts []Context
}

// NewPipeline constructs a pipeline from the named filters. The
// language must be a two-letter ISO 639-1 code; longer codes are
// truncated to two bytes. On failure, contexts created so far are
// destroyed and the error wraps ErrUnknownFilter or ErrFilterInit.
func NewPipeline(reg *Registry, lang string, names []string) (*Pipeline, error) {
	if lang == "" {
		return nil, ErrInvalidLanguage
	}
	if len(lang) > 2 {
		lang = lang[:2]
	}

	p := &Pipeline{
		lang:     lang,
		contexts: make([]Context, 0, len(names)),
	}
	for _, name := range names {
		f, ok := reg.Lookup(name)
		if !ok {
			p.Destroy()
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}
		ctx, err := f.Create(lang)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("%w: %q: %v", ErrFilterInit, name, err)
		}
		p.contexts = append(p.contexts, ctx)
	}
	return p, nil
}

// Lang returns the pipeline language code.
func (p *Pipeline) Lang() string {
	return p.lang
}

// Run applies the filters to the token buffer in order. The first
// non-Mutation action short-circuits the pipeline. An empty pipeline
// returns Mutation with the buffer unchanged.
func (p *Pipeline) Run(buf *Buffer) Action {
	for _, ctx := range p.contexts {
		if action := ctx.Filter(buf); action != Mutation {
			return action
		}
	}
	return Mutation
}

// Destroy releases the filter contexts. Slots whose creation never
// completed are skipped, so destroying a partially constructed
// pipeline is safe.
func (p *Pipeline) Destroy() {
	for _, ctx := range p.contexts {
		if ctx != nil {
			ctx.Destroy()
		}
	}
	p.contexts = nil
}

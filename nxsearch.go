// Package nxsearch is an embeddable full-text search engine. It
// builds persistent inverted indexes over streams of documents and
// answers ranked keyword queries against them.
//
// An Engine owns the filter registry and the stop-word dictionaries
// loaded from its base directory; each index under the engine owns
// its filter pipeline, term dictionary, and on-disk state.
package nxsearch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/toloco/nxsearch/filter"
	"github.com/toloco/nxsearch/index"
)

// Engine errors.
var (
	// ErrEngineClosed is returned for operations on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrIndexNotFound is returned when closing an index that is not
	// open.
	ErrIndexNotFound = errors.New("index not open")
	// ErrInvalidName is returned for an empty index name or one that
	// would escape the base directory.
	ErrInvalidName = errors.New("invalid index name")
)

// Engine is the top-level handle: it owns the filter registry, the
// stop-word store, and the open indexes under one base directory.
// Multiple engines can coexist in a process; nothing is global.
type Engine struct {
	basedir   string
	cfg       Config
	log       zerolog.Logger
	registry  *filter.Registry
	stopwords *filter.StopwordStore

	mu      sync.Mutex
	indexes map[string]*index.Index
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger, overriding the configured level.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLanguage overrides the default index language.
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.cfg.Language = lang
	}
}

// WithFilters overrides the filter pipeline applied by indexes.
func WithFilters(names ...string) Option {
	return func(e *Engine) {
		e.cfg.Filters = names
	}
}

// Open creates an engine over the base directory: it loads the
// optional configuration file, the stop-word dictionaries from
// filters/stopwords/, and registers the built-in filters
// ("normalizer", "stopwords", "stemmer").
func Open(basedir string, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(basedir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}
	cfg, err := loadConfig(basedir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		basedir: basedir,
		cfg:     cfg,
		log:     zerolog.Nop(),
		indexes: make(map[string]*index.Index),
	}
	if cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		e.log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	}
	for _, opt := range opts {
		opt(e)
	}

	stopwords, err := filter.LoadStopwords(basedir)
	if err != nil {
		return nil, err
	}
	e.stopwords = stopwords

	e.registry = filter.NewRegistry()
	builtins := []struct {
		name string
		f    filter.Filter
	}{
		{"normalizer", filter.NewNormalizer()},
		{"stopwords", filter.NewStopwords(stopwords)},
		{"stemmer", filter.NewStemmer()},
	}
	for _, b := range builtins {
		if err := e.registry.Register(b.name, b.f); err != nil {
			return nil, fmt.Errorf("registering %q: %w", b.name, err)
		}
	}

	e.log.Debug().Str("basedir", basedir).Msg("engine opened")
	return e, nil
}

// RegisterFilter adds a caller-supplied filter to the engine's
// registry, making it available to pipelines of subsequently opened
// indexes.
func (e *Engine) RegisterFilter(name string, f filter.Filter) error {
	return e.registry.Register(name, f)
}

// IndexOption configures a single index.
type IndexOption func(*indexConfig)

type indexConfig struct {
	language string
}

// WithIndexLanguage overrides the engine language for one index.
func WithIndexLanguage(lang string) IndexOption {
	return func(c *indexConfig) {
		c.language = lang
	}
}

// OpenIndex opens the named index under the base directory, creating
// it if needed. Reopening an already-open index returns the existing
// handle.
func (e *Engine) OpenIndex(name string, opts ...IndexOption) (*index.Index, error) {
	if name == "" || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if idx, ok := e.indexes[name]; ok {
		return idx, nil
	}

	cfg := indexConfig{language: e.cfg.Language}
	for _, opt := range opts {
		opt(&cfg)
	}

	pipeline, err := filter.NewPipeline(e.registry, cfg.language, e.cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline for %q: %w", name, err)
	}
	idx, err := index.Open(filepath.Join(e.basedir, name),
		index.WithPipeline(pipeline),
		index.WithName(name),
		index.WithLogger(e.log))
	if err != nil {
		pipeline.Destroy()
		return nil, err
	}
	e.indexes[name] = idx
	return idx, nil
}

// CloseIndex closes the named index and releases its resources.
func (e *Engine) CloseIndex(name string) error {
	e.mu.Lock()
	idx, ok := e.indexes[name]
	delete(e.indexes, name)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	return idx.Close()
}

// Close closes every open index and shuts the engine down.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for name, idx := range e.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", name, err))
		}
	}
	e.indexes = nil
	e.log.Debug().Msg("engine closed")
	return errors.Join(errs...)
}

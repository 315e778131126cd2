// Package search runs a pattern over the functions and classes of Python
// files and collects the units that match.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/grepy/internal/lang"
	"github.com/phobologic/grepy/internal/model"
	"github.com/phobologic/grepy/internal/parse"
	"github.com/phobologic/grepy/internal/syntax"
)

// ResultCache stores the hits of files that were searched successfully.
// Implementations are scoped to one pattern and unit set and must be safe
// for concurrent use.
type ResultCache interface {
	Lookup(path string) ([]model.Hit, bool)
	Store(path string, hits []model.Hit)
}

// Options tunes a Search run. The zero value is usable.
type Options struct {
	// Workers bounds the number of files searched at once. Zero means
	// GOMAXPROCS.
	Workers int
	// MatchTimeout bounds one pattern match. A unit that runs past it fails
	// its file with ErrMatchTimeout. Zero means no limit.
	MatchTimeout time.Duration
	Cache        ResultCache
	Logger       zerolog.Logger
	// OnFile is called once per finished file from a single goroutine.
	OnFile func(path string)
}

// Search matches pattern against every unit of the given kinds in files.
// The result has one entry per file, in input order. A file that cannot
// be read, parsed or rendered gets its error recorded and does not stop
// the others. An invalid pattern or unknown kind fails the whole run before
// any file is opened.
func Search(ctx context.Context, pattern string, files []string, kinds []model.UnitKind, opts Options) ([]model.FileResult, error) {
	p, err := Compile(pattern, opts.MatchTimeout)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if _, ok := unitRules[k]; !ok {
			return nil, fmt.Errorf("unknown unit kind %q", k)
		}
	}

	results := make([]model.FileResult, len(files))
	for i, f := range files {
		results[i] = model.FileResult{Path: f, Hits: []model.Hit{}}
	}
	if len(kinds) == 0 || len(files) == 0 {
		return results, nil
	}

	type result struct {
		index int
		hits  []model.Hit
		err   error
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	out := make(chan result, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser
			parser := lang.Languages[lang.Python].NewParser()
			defer parser.Close()

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				hits, err := searchFile(ctx, parser, p, kinds, files[idx], opts)
				out <- result{index: idx, hits: hits, err: err}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		path := files[r.index]
		if r.err != nil {
			opts.Logger.Debug().Str("file", path).Str("kind", ErrorKind(r.err)).Err(r.err).Msg("search failed")
			results[r.index].Err = r.err
			results[r.index].Hits = nil
		} else {
			opts.Logger.Debug().Str("file", path).Int("hits", len(r.hits)).Msg("searched")
			results[r.index].Hits = r.hits
		}
		if opts.OnFile != nil {
			opts.OnFile(path)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchFile runs one visitor per kind over the file, in the order the
// kinds were given, all appending to the same hit list.
func searchFile(ctx context.Context, parser *sitter.Parser, p *Pattern, kinds []model.UnitKind, path string, opts Options) ([]model.Hit, error) {
	if opts.Cache != nil {
		if hits, ok := opts.Cache.Lookup(path); ok {
			return hits, nil
		}
	}

	root, err := parse.File(ctx, parser, path)
	if err != nil {
		return nil, err
	}

	hits := []model.Hit{}
	for _, k := range kinds {
		v, err := NewVisitor(p, k, &hits)
		if err != nil {
			return nil, err
		}
		if err := v.Visit(root); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if opts.Cache != nil {
		opts.Cache.Store(path, hits)
	}
	return hits, nil
}

// Error kinds reported by ErrorKind.
const (
	KindSyntax      = "syntax"
	KindUnsupported = "unsupported"
	KindTimeout     = "timeout"
	KindIO          = "io"
)

// ErrorKind classifies a per-file error for reporting.
func ErrorKind(err error) string {
	var se *parse.SyntaxError
	var ue *syntax.UnsupportedError
	switch {
	case errors.As(err, &se):
		return KindSyntax
	case errors.As(err, &ue):
		return KindUnsupported
	case errors.Is(err, ErrMatchTimeout):
		return KindTimeout
	}
	return KindIO
}

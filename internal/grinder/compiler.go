// Package grinder compiles a loaded trace into a Jython script for
// The Grinder 3.11.
package grinder

import (
	"log/slog"

	"github.com/dgnsrekt/har2grinder/internal/types"
)

// DefaultSleepBetweenPages is the pause between page visits, in milliseconds.
const DefaultSleepBetweenPages = 3000

// Options configure one compile pass.
type Options struct {
	ExcludedDomains   []string
	SleepBetweenPages int
	FirstPageNumber   int
}

func DefaultOptions() Options {
	return Options{SleepBetweenPages: DefaultSleepBetweenPages}
}

// Overrides replace individual options for a single request. Nil fields
// keep the configured value.
type Overrides struct {
	ExcludedDomains   []string
	SleepBetweenPages *int
	FirstPageNumber   *int
}

// With returns o with ov applied. Excluded domains from ov are added to the
// configured set.
func (o Options) With(ov Overrides) Options {
	out := o
	if len(ov.ExcludedDomains) > 0 {
		out.ExcludedDomains = append(append([]string(nil), o.ExcludedDomains...), ov.ExcludedDomains...)
	}
	if ov.SleepBetweenPages != nil {
		out.SleepBetweenPages = *ov.SleepBetweenPages
	}
	if ov.FirstPageNumber != nil {
		out.FirstPageNumber = *ov.FirstPageNumber
	}
	return out
}

// Stats summarizes a compile pass.
type Stats struct {
	Pages           int `json:"pages"`
	Exchanges       int `json:"exchanges"`
	Compiled        int `json:"compiled"`
	SkippedCached   int `json:"skipped_cached"`
	SkippedExcluded int `json:"skipped_excluded"`
	LibrarySize     int `json:"library_size"`
}

// Compile runs the single compile pass over tr. Exchanges are numbered and
// interned in trace order; pages are emitted in ordinal order. Any error
// aborts the pass and no script is returned.
func Compile(tr *types.Trace, opts Options) (*Script, error) {
	if tr == nil {
		return nil, types.NewError(types.CodeValidation, "trace is required", nil)
	}
	if opts.SleepBetweenPages < 0 {
		return nil, types.NewError(types.CodeValidation, "sleep between pages must not be negative", nil)
	}
	if opts.FirstPageNumber < 0 {
		return nil, types.NewError(types.CodeValidation, "first page number must not be negative", nil)
	}

	numbering := NewNumbering(tr.Pages, opts.FirstPageNumber)
	builders := make(map[string]*PageBuilder, len(tr.Pages))
	for _, p := range tr.Pages {
		ordinal, _ := numbering.Ordinal(p.ID)
		builders[p.ID] = NewPageBuilder(p, ordinal)
	}
	lib := NewHeaderLibrary()
	filter := newExchangeFilter(opts.ExcludedDomains)

	stats := Stats{Pages: len(tr.Pages), Exchanges: len(tr.Exchanges)}
	compiled := make([]CompiledExchange, 0, len(tr.Exchanges))
	for _, ex := range tr.Exchanges {
		c, skip, err := compileExchange(ex, filter, numbering, lib)
		if err != nil {
			return nil, err
		}
		switch skip {
		case SkipCached:
			stats.SkippedCached++
			slog.Debug("exchange skipped", "entry", ex.Index, "reason", skip, "from_cache", ex.FromCache, "url", ex.URL)
			continue
		case SkipExcluded:
			stats.SkippedExcluded++
			slog.Debug("exchange skipped", "entry", ex.Index, "reason", skip, "url", ex.URL)
			continue
		}
		builders[c.PageID].Add(c)
		compiled = append(compiled, c)
	}

	pages := make([]PageProcedure, 0, len(tr.Pages))
	for _, p := range tr.Pages {
		pages = append(pages, builders[p.ID].Build())
	}

	stats.Compiled = len(compiled)
	stats.LibrarySize = lib.Len()
	slog.Info("trace compiled",
		"pages", stats.Pages,
		"exchanges", stats.Exchanges,
		"compiled", stats.Compiled,
		"skipped_cached", stats.SkippedCached,
		"skipped_excluded", stats.SkippedExcluded,
		"library_size", stats.LibrarySize,
	)

	return &Script{
		Library:           lib.Pairs(),
		Exchanges:         compiled,
		Pages:             pages,
		SleepBetweenPages: opts.SleepBetweenPages,
		Stats:             stats,
	}, nil
}

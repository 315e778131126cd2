// Package report writes search results in the supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/phobologic/grepy/internal/model"
	"github.com/phobologic/grepy/internal/search"
	"github.com/phobologic/grepy/internal/toon"
)

// Output formats.
const (
	Text = "text"
	TOON = "toon"
	JSON = "json"
)

// Options selects the format and decoration of a report.
type Options struct {
	Format  string
	Pattern string
	Units   []model.UnitKind
	// Color highlights unit source in text output using Theme.
	Color bool
	Theme string
}

// FormatHit renders one hit the way grepy always has: the unit label, a
// blank line, the unit source, fenced by "---" lines.
func FormatHit(label, text string) string {
	return fmt.Sprintf("---\n%s:\n\n%s\n---", label, text)
}

// Write reports results to w. Text output lists only files with hits;
// failures are left to WriteErrors. TOON and JSON include failures inline.
func Write(w io.Writer, results []model.FileResult, opts Options) error {
	switch opts.Format {
	case Text, "":
		return writeText(w, results, opts)
	case TOON:
		_, err := fmt.Fprintln(w, toon.Encode(toon.Document{
			Pattern:   opts.Pattern,
			Units:     opts.Units,
			Results:   results,
			ErrorKind: search.ErrorKind,
		}))
		return err
	case JSON:
		return writeJSON(w, results, opts)
	}
	return fmt.Errorf("unknown output format %q", opts.Format)
}

func writeText(w io.Writer, results []model.FileResult, opts Options) error {
	for _, r := range results {
		if len(r.Hits) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "**%s**\n", r.Path); err != nil {
			return err
		}
		for _, h := range r.Hits {
			text := h.Text
			if opts.Color {
				text = Highlight(text, opts.Theme)
			}
			if _, err := fmt.Fprintln(w, FormatHit(h.Label, text)); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonFile struct {
	Path  string      `json:"path"`
	Hits  []model.Hit `json:"hits"`
	Error string      `json:"error,omitempty"`
	Kind  string      `json:"kind,omitempty"`
}

type jsonReport struct {
	Pattern string           `json:"pattern"`
	Units   []model.UnitKind `json:"units"`
	Files   []jsonFile       `json:"files"`
	Summary model.Summary    `json:"summary"`
}

func writeJSON(w io.Writer, results []model.FileResult, opts Options) error {
	rep := jsonReport{
		Pattern: opts.Pattern,
		Units:   opts.Units,
		Files:   make([]jsonFile, len(results)),
		Summary: model.Summarize(results),
	}
	if rep.Units == nil {
		rep.Units = []model.UnitKind{}
	}
	for i, r := range results {
		f := jsonFile{Path: r.Path, Hits: r.Hits}
		if f.Hits == nil {
			f.Hits = []model.Hit{}
		}
		if r.Err != nil {
			f.Error = r.Err.Error()
			f.Kind = search.ErrorKind(r.Err)
		}
		rep.Files[i] = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteErrors prints one line per failed file.
func WriteErrors(w io.Writer, results []model.FileResult) error {
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "grepy: %s: %s: %v\n", r.Path, search.ErrorKind(r.Err), r.Err); err != nil {
			return err
		}
	}
	return nil
}

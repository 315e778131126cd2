// Package model defines core data structures for grepy.
package model

import (
	"fmt"
	"strings"
)

// UnitKind names a syntactic unit that a search is scoped to.
type UnitKind string

const (
	Function UnitKind = "function"
	Class    UnitKind = "class"
)

// UnitKinds lists every supported kind in the order reports use.
var UnitKinds = []UnitKind{Function, Class}

// ParseUnitKind accepts a kind name in any case, plus the short forms used
// on the command line ("f", "c").
func ParseUnitKind(s string) (UnitKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "function", "func", "f", "def":
		return Function, nil
	case "class", "c":
		return Class, nil
	}
	names := make([]string, len(UnitKinds))
	for i, k := range UnitKinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unknown unit kind %q (want %s)", s, strings.Join(names, " or "))
}

// Hit is one unit whose rendered source matched the pattern.
type Hit struct {
	Unit  UnitKind `json:"unit"`
	Label string   `json:"label"`
	// Name is the dotted path of the unit through its enclosing units,
	// such as "Outer.method".
	Name string `json:"name"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// FileResult holds the hits for a single file in traversal order, or the
// error that stopped the file from being searched.
type FileResult struct {
	Path string `json:"path"`
	Hits []Hit  `json:"hits"`
	Err  error  `json:"-"`
}

// Summary aggregates a run's results for exit status reporting.
type Summary struct {
	Files  int `json:"files"`
	Hits   int `json:"hits"`
	Failed int `json:"failed"`
}

// Summarize counts files, hits and failures across results.
func Summarize(results []FileResult) Summary {
	s := Summary{Files: len(results)}
	for _, r := range results {
		s.Hits += len(r.Hits)
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

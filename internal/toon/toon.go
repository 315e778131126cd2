// Package toon implements TOON (Token-Oriented Object Notation) encoding
// of search results.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/grepy/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Document is one search run as the encoder sees it.
type Document struct {
	Pattern string
	Units   []model.UnitKind
	Results []model.FileResult
	// ErrorKind labels a failed file's error; nil uses "error".
	ErrorKind func(error) string
}

// Encode converts a search run into TOON format. Files without hits or
// errors only count towards the files total.
func Encode(doc Document) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("pattern: %s", encodeValue(doc.Pattern)))

	units := make([]string, len(doc.Units))
	for i, u := range doc.Units {
		units[i] = encodeValue(string(u))
	}
	parts = append(parts, fmt.Sprintf("units[%d]: %s", len(units), strings.Join(units, ",")))
	parts = append(parts, fmt.Sprintf("files: %d", len(doc.Results)))

	var hitRows [][]string
	for i := range doc.Results {
		r := &doc.Results[i]
		for j := range r.Hits {
			h := &r.Hits[j]
			hitRows = append(hitRows, []string{
				r.Path,
				string(h.Unit),
				h.Name,
				fmt.Sprintf("%d", h.Line),
				h.Text,
			})
		}
	}
	parts = append(parts, formatTabular("hits", []string{"file", "unit", "name", "line", "text"}, hitRows))

	var errRows [][]string
	for i := range doc.Results {
		r := &doc.Results[i]
		if r.Err == nil {
			continue
		}
		kind := "error"
		if doc.ErrorKind != nil {
			kind = doc.ErrorKind(r.Err)
		}
		errRows = append(errRows, []string{r.Path, kind, r.Err.Error()})
	}
	if len(errRows) > 0 {
		parts = append(parts, formatTabular("errors", []string{"file", "kind", "message"}, errRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

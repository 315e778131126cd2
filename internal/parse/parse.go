// Package parse converts Python source into syntax trees using tree-sitter.
//
// The tree-sitter grammar produces a concrete tree that keeps punctuation,
// comments and grouping parentheses. Conversion drops all of that, so two
// sources that differ only in layout or redundant parentheses yield equal
// trees.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/grepy/internal/syntax"
)

// SyntaxError reports source that the grammar could not parse.
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Near   string
}

func (e *SyntaxError) Error() string {
	loc := fmt.Sprintf("line %d, column %d", e.Line, e.Column)
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	if e.Near == "" {
		return "syntax error at " + loc
	}
	return fmt.Sprintf("syntax error at %s near %q", loc, e.Near)
}

// File reads and parses the Python file at path.
func File(ctx context.Context, parser *sitter.Parser, path string) (*syntax.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	root, err := Source(ctx, parser, src)
	var se *SyntaxError
	if errors.As(err, &se) {
		se.File = path
	}
	return root, err
}

// Source parses src into a Module node. The parser must be configured for
// Python.
func Source(ctx context.Context, parser *sitter.Parser, src []byte) (*syntax.Node, error) {
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, newSyntaxError(root, src)
	}

	c := &converter{src: src}
	mod := syntax.New(syntax.Module, 1)
	body, err := c.block(root)
	if err != nil {
		return nil, err
	}
	return mod.Add(syntax.FieldBody, body...), nil
}

func newSyntaxError(root *sitter.Node, src []byte) *SyntaxError {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	se := &SyntaxError{
		Line:   int(bad.StartPoint().Row) + 1,
		Column: int(bad.StartPoint().Column) + 1,
	}
	if !bad.IsMissing() {
		near := bad.Content(src)
		if i := strings.IndexByte(near, '\n'); i >= 0 {
			near = near[:i]
		}
		if len(near) > 40 {
			near = near[:40]
		}
		se.Near = strings.TrimSpace(near)
	}
	return se
}

// firstError returns the first ERROR or MISSING node in source order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			if bad := firstError(child); bad != nil {
				return bad
			}
		}
	}
	return nil
}

type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func isExtra(n *sitter.Node) bool {
	switch n.Type() {
	case "comment", "line_continuation":
		return true
	}
	return false
}

// named returns the named children of n, skipping comments.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if isExtra(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

// hasToken reports whether n has a direct anonymous child of the given type.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() && child.Type() == tok {
			return true
		}
	}
	return false
}

// trailingComma reports whether the last anonymous token before the closing
// bracket of n (or the end of n) is a comma.
func trailingComma(n *sitter.Node) bool {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		child := n.Child(i)
		if isExtra(child) {
			continue
		}
		switch child.Type() {
		case ")", "]", "}":
			continue
		case ",":
			return true
		}
		return false
	}
	return false
}

func unsupported(n *sitter.Node) error {
	return &syntax.UnsupportedError{Kind: n.Type(), Line: line(n)}
}

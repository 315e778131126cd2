package search

import (
	"fmt"
	"strings"

	"github.com/phobologic/grepy/internal/model"
	"github.com/phobologic/grepy/internal/syntax"
	"github.com/phobologic/grepy/internal/unparse"
)

type unitRule struct {
	label string
	match func(*syntax.Node) bool
}

func kindIs(k syntax.Kind) func(*syntax.Node) bool {
	return func(n *syntax.Node) bool { return n.Kind == k }
}

// unitRules maps each unit kind to the nodes it selects and the label its
// hits carry.
var unitRules = map[model.UnitKind]unitRule{
	model.Function: {label: "Function", match: kindIs(syntax.FunctionDef)},
	model.Class:    {label: "Class", match: kindIs(syntax.ClassDef)},
}

// Visitor matches one pattern against every unit of one kind in a tree.
type Visitor struct {
	pattern *Pattern
	kind    model.UnitKind
	rule    unitRule
	hits    *[]model.Hit
}

// NewVisitor returns a visitor that appends matching units of kind to hits.
// Several visitors may share the same hits slice.
func NewVisitor(p *Pattern, kind model.UnitKind, hits *[]model.Hit) (*Visitor, error) {
	rule, ok := unitRules[kind]
	if !ok {
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}
	return &Visitor{pattern: p, kind: kind, rule: rule, hits: hits}, nil
}

// Visit walks root in pre-order. A unit nested inside another matching unit
// is tested on its own as well, so both may be reported.
func (v *Visitor) Visit(root *syntax.Node) error {
	return v.visit(root, nil)
}

func (v *Visitor) visit(n *syntax.Node, scope []string) error {
	if n.Kind == syntax.FunctionDef || n.Kind == syntax.ClassDef {
		scope = append(scope[:len(scope):len(scope)], n.Value)
	}
	if v.rule.match(n) {
		if err := v.test(n, scope); err != nil {
			return err
		}
	}
	for _, c := range n.Children() {
		if err := v.visit(c, scope); err != nil {
			return err
		}
	}
	return nil
}

func (v *Visitor) test(n *syntax.Node, scope []string) error {
	text, err := unparse.Render(n)
	if err != nil {
		return err
	}
	ok, err := v.pattern.Match(text)
	if err != nil {
		return fmt.Errorf("matching %s at line %d: %w", n.Value, n.Line, err)
	}
	if ok {
		*v.hits = append(*v.hits, model.Hit{
			Unit:  v.kind,
			Label: v.rule.label,
			Name:  strings.Join(scope, "."),
			Line:  n.Line,
			Text:  text,
		})
	}
	return nil
}

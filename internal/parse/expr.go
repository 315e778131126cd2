package parse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/grepy/internal/syntax"
)

func leaf(kind syntax.Kind, ln int, value string) *syntax.Node {
	n := syntax.New(kind, ln)
	n.Value = value
	return n
}

func (c *converter) expr(n *sitter.Node) (*syntax.Node, error) {
	if n == nil {
		return nil, &syntax.UnsupportedError{Kind: "missing expression"}
	}
	ln := line(n)
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return leaf(syntax.Name, ln, c.text(n)), nil
	case "integer", "float", "string", "true", "false", "none", "ellipsis":
		return leaf(syntax.Literal, ln, c.text(n)), nil
	case "concatenated_string":
		var parts []string
		for _, k := range named(n) {
			parts = append(parts, c.text(k))
		}
		return leaf(syntax.Literal, ln, strings.Join(parts, " ")), nil
	case "parenthesized_expression", "type":
		kids := named(n)
		if len(kids) != 1 {
			return nil, unsupported(n)
		}
		return c.expr(kids[0])
	case "binary_operator":
		return c.binary(syntax.BinOp, n)
	case "boolean_operator":
		return c.binary(syntax.BoolOp, n)
	case "not_operator":
		return c.unary(n, "not", n.ChildByFieldName("argument"))
	case "unary_operator":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return nil, unsupported(n)
		}
		return c.unary(n, op.Type(), n.ChildByFieldName("argument"))
	case "comparison_operator":
		return c.compare(n)
	case "conditional_expression":
		return c.conditionalExpr(n)
	case "named_expression":
		return c.pair(syntax.NamedExpr, n, syntax.FieldTarget, "name", syntax.FieldValue, "value")
	case "await":
		return c.wrap(syntax.Await, n)
	case "lambda":
		return c.lambda(n)
	case "attribute":
		return c.attribute(n)
	case "subscript":
		return c.subscript(n)
	case "slice":
		return c.slice(n)
	case "call":
		return c.call(n)
	case "keyword_argument":
		return c.keyword(n)
	case "list_splat", "list_splat_pattern":
		return c.wrap(syntax.Starred, n)
	case "dictionary_splat", "dictionary_splat_pattern":
		return c.wrap(syntax.DoubleStarred, n)
	case "tuple", "tuple_pattern", "expression_list", "pattern_list":
		return c.tuple(n, named(n))
	case "list", "list_pattern":
		return c.sequence(syntax.List, n)
	case "set":
		return c.sequence(syntax.Set, n)
	case "dictionary":
		return c.sequence(syntax.Dict, n)
	case "pair":
		return c.pair(syntax.Pair, n, syntax.FieldKey, "key", syntax.FieldValue, "value")
	case "list_comprehension":
		return c.comprehension(syntax.ListComp, n)
	case "set_comprehension":
		return c.comprehension(syntax.SetComp, n)
	case "dictionary_comprehension":
		return c.comprehension(syntax.DictComp, n)
	case "generator_expression":
		return c.comprehension(syntax.GeneratorExp, n)
	case "yield":
		return c.yield(n)
	case "generic_type":
		return c.genericType(n)
	case "union_type":
		kids := named(n)
		if len(kids) != 2 {
			return nil, unsupported(n)
		}
		return c.binaryParts(syntax.BinOp, n, "|", kids[0], kids[1])
	case "member_type":
		kids := named(n)
		if len(kids) != 2 {
			return nil, unsupported(n)
		}
		obj, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		attr := syntax.New(syntax.Attribute, ln).Add(syntax.FieldValue, obj)
		attr.Value = c.text(kids[1])
		return attr, nil
	case "splat_type":
		kind := syntax.Starred
		if hasToken(n, "**") {
			kind = syntax.DoubleStarred
		}
		return c.wrap(kind, n)
	}
	return nil, unsupported(n)
}

func (c *converter) binary(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return nil, unsupported(n)
	}
	return c.binaryParts(kind, n, op.Type(), n.ChildByFieldName("left"), n.ChildByFieldName("right"))
}

func (c *converter) binaryParts(kind syntax.Kind, n *sitter.Node, op string, l, r *sitter.Node) (*syntax.Node, error) {
	left, err := c.expr(l)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(r)
	if err != nil {
		return nil, err
	}
	node := syntax.New(kind, line(n)).
		Add(syntax.FieldLeft, left).
		Add(syntax.FieldRight, right)
	node.Op = op
	return node, nil
}

func (c *converter) unary(n *sitter.Node, op string, arg *sitter.Node) (*syntax.Node, error) {
	operand, err := c.expr(arg)
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.UnaryOp, line(n)).Add(syntax.FieldOperand, operand)
	node.Op = op
	return node, nil
}

// compare flattens a chained comparison. Multi-word operators such as
// "not in" and "is not" are joined with a single space.
func (c *converter) compare(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Compare, line(n))
	var pending []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if isExtra(child) {
			continue
		}
		if !child.IsNamed() {
			pending = append(pending, child.Type())
			continue
		}
		if len(pending) > 0 {
			node.Ops = append(node.Ops, strings.Join(pending, " "))
			pending = nil
		}
		operand, err := c.expr(child)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldValues, operand)
	}
	if len(node.Ops) == 0 || len(node.Ops) != len(node.Get(syntax.FieldValues))-1 {
		return nil, unsupported(n)
	}
	return node, nil
}

func (c *converter) conditionalExpr(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) != 3 {
		return nil, unsupported(n)
	}
	node := syntax.New(syntax.IfExp, line(n))
	for i, f := range []syntax.Field{syntax.FieldBody, syntax.FieldTest, syntax.FieldOrElse} {
		e, err := c.expr(kids[i])
		if err != nil {
			return nil, err
		}
		node.Add(f, e)
	}
	return node, nil
}

// pair builds a two-child node from the named fields of n.
func (c *converter) pair(kind syntax.Kind, n *sitter.Node, f1 syntax.Field, name1 string, f2 syntax.Field, name2 string) (*syntax.Node, error) {
	a, err := c.expr(n.ChildByFieldName(name1))
	if err != nil {
		return nil, err
	}
	b, err := c.expr(n.ChildByFieldName(name2))
	if err != nil {
		return nil, err
	}
	return syntax.New(kind, line(n)).Add(f1, a).Add(f2, b), nil
}

// wrap builds a node whose single child is the only named child of n.
func (c *converter) wrap(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) != 1 {
		return nil, unsupported(n)
	}
	value, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	return syntax.New(kind, line(n)).Add(syntax.FieldValue, value), nil
}

func (c *converter) lambda(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Lambda, line(n))
	params, err := c.params(n.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	node.Add(syntax.FieldParams, params...)
	body, err := c.expr(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return node.Add(syntax.FieldBody, body), nil
}

func (c *converter) attribute(n *sitter.Node) (*syntax.Node, error) {
	attr := n.ChildByFieldName("attribute")
	if attr == nil {
		return nil, unsupported(n)
	}
	obj, err := c.expr(n.ChildByFieldName("object"))
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.Attribute, line(n)).Add(syntax.FieldValue, obj)
	node.Value = c.text(attr)
	return node, nil
}

// subscript keeps each comma-separated index as its own child. A single
// index followed by a comma is a one-element tuple.
func (c *converter) subscript(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) < 2 {
		return nil, unsupported(n)
	}
	value, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	return c.index(n, value, kids[1:])
}

func (c *converter) index(n *sitter.Node, value *syntax.Node, kids []*sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Subscript, line(n)).Add(syntax.FieldValue, value)

	var index []*syntax.Node
	for _, k := range kids {
		e, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		index = append(index, e)
	}
	if len(index) == 1 && trailingComma(n) {
		index = []*syntax.Node{syntax.New(syntax.Tuple, line(n)).Add(syntax.FieldElts, index...)}
	}
	return node.Add(syntax.FieldIndex, index...), nil
}

// slice records which bounds are present. Op is "::" when a second colon
// was written, even without a step.
func (c *converter) slice(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Slice, line(n))
	colons := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if isExtra(child) {
			continue
		}
		if !child.IsNamed() {
			if child.Type() == ":" {
				colons++
			}
			continue
		}
		e, err := c.expr(child)
		if err != nil {
			return nil, err
		}
		switch colons {
		case 0:
			node.Add(syntax.FieldLower, e)
		case 1:
			node.Add(syntax.FieldUpper, e)
		default:
			node.Add(syntax.FieldStep, e)
		}
	}
	node.Op = ":"
	if colons > 1 {
		node.Op = "::"
	}
	return node, nil
}

func (c *converter) call(n *sitter.Node) (*syntax.Node, error) {
	fn, err := c.expr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	return c.applyArgs(n, fn)
}

// applyArgs builds a Call of fn with the arguments of the call node n.
func (c *converter) applyArgs(n *sitter.Node, fn *syntax.Node) (*syntax.Node, error) {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return nil, unsupported(n)
	}
	converted, err := c.arguments(args)
	if err != nil {
		return nil, err
	}
	return syntax.New(syntax.Call, line(n)).
		Add(syntax.FieldFunc, fn).
		Add(syntax.FieldArgs, converted...), nil
}

// arguments converts a call's argument list or a class's base list. A
// generator passed as the sole argument shares the call's parentheses.
func (c *converter) arguments(n *sitter.Node) ([]*syntax.Node, error) {
	if n.Type() == "generator_expression" {
		g, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		return []*syntax.Node{g}, nil
	}
	var out []*syntax.Node
	for _, k := range named(n) {
		a, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *converter) keyword(n *sitter.Node) (*syntax.Node, error) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil, unsupported(n)
	}
	value, err := c.expr(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.Keyword, line(n)).Add(syntax.FieldValue, value)
	node.Value = c.text(name)
	return node, nil
}

func (c *converter) tuple(n *sitter.Node, kids []*sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Tuple, line(n))
	for _, k := range kids {
		e, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldElts, e)
	}
	return node, nil
}

func (c *converter) sequence(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(kind, line(n))
	for _, k := range named(n) {
		e, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldElts, e)
	}
	return node, nil
}

func (c *converter) comprehension(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) < 2 {
		return nil, unsupported(n)
	}
	elt, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	node := syntax.New(kind, line(n)).Add(syntax.FieldElt, elt)

	var current *syntax.Node
	for _, k := range kids[1:] {
		switch k.Type() {
		case "for_in_clause":
			gen, err := c.forIn(k)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldGenerators, gen)
			current = gen
		case "if_clause":
			inner := named(k)
			if current == nil || len(inner) != 1 {
				return nil, unsupported(k)
			}
			cond, err := c.expr(inner[0])
			if err != nil {
				return nil, err
			}
			current.Add(syntax.FieldIfs, cond)
		default:
			return nil, unsupported(k)
		}
	}
	return node, nil
}

func (c *converter) forIn(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) < 2 {
		return nil, unsupported(n)
	}
	gen := syntax.New(syntax.Comprehension, line(n))
	gen.Async = hasToken(n, "async")
	target, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	gen.Add(syntax.FieldTarget, target)
	for _, k := range kids[1:] {
		iter, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		gen.Add(syntax.FieldIter, iter)
	}
	return gen, nil
}

func (c *converter) yield(n *sitter.Node) (*syntax.Node, error) {
	kind := syntax.Yield
	if hasToken(n, "from") {
		kind = syntax.YieldFrom
	}
	node := syntax.New(kind, line(n))
	kids := named(n)
	if len(kids) > 1 {
		return nil, unsupported(n)
	}
	if len(kids) == 1 {
		value, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldValue, value)
	}
	return node, nil
}

// genericType converts annotation forms like list[int], which some grammar
// versions parse as a dedicated type node instead of a subscript.
func (c *converter) genericType(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) != 2 || kids[1].Type() != "type_parameter" {
		return nil, unsupported(n)
	}
	value, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.Subscript, line(n)).Add(syntax.FieldValue, value)
	for _, k := range named(kids[1]) {
		e, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldIndex, e)
	}
	return node, nil
}

// tokens returns the leaf tokens of n joined with normalized spacing.
func (c *converter) tokens(n *sitter.Node) string {
	var toks []string
	var walk func(*sitter.Node)
	walk = func(m *sitter.Node) {
		if isExtra(m) {
			return
		}
		if m.ChildCount() == 0 || m.Type() == "string" {
			if t := c.text(m); t != "" {
				toks = append(toks, t)
			}
			return
		}
		for i := 0; i < int(m.ChildCount()); i++ {
			walk(m.Child(i))
		}
	}
	walk(n)
	return joinTokens(toks)
}

func joinTokens(toks []string) string {
	var b strings.Builder
	prev, before := "", ""
	for _, t := range toks {
		if prev != "" && needsSpace(prev, t) && !(isPrefixOp(prev) && opensOperand(before)) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
		before, prev = prev, t
	}
	return b.String()
}

// isPrefixOp reports whether tok can start an operand, as in *rest or -1.
func isPrefixOp(tok string) bool {
	return tok == "*" || tok == "**" || tok == "-"
}

// opensOperand reports whether a token following tok starts a new operand
// rather than continuing a binary expression.
func opensOperand(tok string) bool {
	switch tok {
	case "", "(", "[", "{", ",", ":", "|", "as":
		return true
	}
	return false
}

func needsSpace(prev, next string) bool {
	switch next {
	case ")", "]", "}", ",", ":", ".":
		return false
	case "(", "[":
		if endsWord(prev) || prev == ")" || prev == "]" {
			return false
		}
	}
	switch prev {
	case "(", "[", "{", ".":
		return false
	}
	return true
}

func endsWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

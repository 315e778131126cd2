package parse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/grepy/internal/syntax"
)

func (c *converter) block(n *sitter.Node) ([]*syntax.Node, error) {
	if n == nil {
		return nil, nil
	}
	var out []*syntax.Node
	for _, child := range named(n) {
		s, err := c.stmt(child)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// clauseBody converts the block of an else, finally or case clause.
func (c *converter) clauseBody(n *sitter.Node) ([]*syntax.Node, error) {
	if body := n.ChildByFieldName("body"); body != nil {
		return c.block(body)
	}
	for _, child := range named(n) {
		if child.Type() == "block" {
			return c.block(child)
		}
	}
	return nil, unsupported(n)
}

func (c *converter) stmt(n *sitter.Node) (*syntax.Node, error) {
	switch n.Type() {
	case "expression_statement":
		return c.exprStmt(n)
	case "return_statement":
		return c.optionalValue(syntax.Return, n)
	case "delete_statement":
		return c.deleteStmt(n)
	case "raise_statement":
		return c.raiseStmt(n)
	case "pass_statement":
		return syntax.New(syntax.Pass, line(n)), nil
	case "break_statement":
		return syntax.New(syntax.Break, line(n)), nil
	case "continue_statement":
		return syntax.New(syntax.Continue, line(n)), nil
	case "import_statement":
		return c.importStmt(n)
	case "import_from_statement", "future_import_statement":
		return c.importFrom(n)
	case "global_statement":
		return c.names(syntax.Global, n)
	case "nonlocal_statement":
		return c.names(syntax.Nonlocal, n)
	case "assert_statement":
		return c.assertStmt(n)
	case "print_statement":
		return c.printStmt(n)
	case "exec_statement":
		return c.execStmt(n)
	case "type_alias_statement":
		return c.typeAlias(n)
	case "if_statement":
		return c.ifStmt(n)
	case "for_statement":
		return c.forStmt(n)
	case "while_statement":
		return c.whileStmt(n)
	case "try_statement":
		return c.tryStmt(n)
	case "with_statement":
		return c.withStmt(n)
	case "match_statement":
		return c.matchStmt(n)
	case "function_definition":
		return c.function(n, nil)
	case "class_definition":
		return c.class(n, nil)
	case "decorated_definition":
		return c.decorated(n)
	}
	return nil, unsupported(n)
}

func (c *converter) exprStmt(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) == 0 {
		return nil, unsupported(n)
	}
	if len(kids) == 1 && !trailingComma(n) {
		switch kids[0].Type() {
		case "assignment":
			return c.assignment(kids[0])
		case "augmented_assignment":
			return c.augAssign(kids[0])
		}
	}

	var value *syntax.Node
	var err error
	if len(kids) == 1 && !trailingComma(n) {
		value, err = c.expr(kids[0])
	} else {
		value, err = c.tuple(n, kids)
	}
	if err != nil {
		return nil, err
	}
	return syntax.New(syntax.ExprStmt, line(n)).Add(syntax.FieldValue, value), nil
}

func (c *converter) assignment(n *sitter.Node) (*syntax.Node, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil {
		return nil, unsupported(n)
	}

	if typ := n.ChildByFieldName("type"); typ != nil {
		target, err := c.expr(left)
		if err != nil {
			return nil, err
		}
		ann, err := c.expr(typ)
		if err != nil {
			return nil, err
		}
		node := syntax.New(syntax.AnnAssign, line(n)).
			Add(syntax.FieldTarget, target).
			Add(syntax.FieldAnnotation, ann)
		if right != nil {
			value, err := c.expr(right)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldValue, value)
		}
		return node, nil
	}

	// a = b = c nests to the right; flatten it into one target list.
	node := syntax.New(syntax.Assign, line(n))
	for {
		target, err := c.expr(left)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldTargets, target)
		if right == nil {
			return nil, unsupported(n)
		}
		if right.Type() != "assignment" || right.ChildByFieldName("type") != nil {
			break
		}
		left = right.ChildByFieldName("left")
		right = right.ChildByFieldName("right")
	}
	value, err := c.expr(right)
	if err != nil {
		return nil, err
	}
	return node.Add(syntax.FieldValue, value), nil
}

func (c *converter) augAssign(n *sitter.Node) (*syntax.Node, error) {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return nil, unsupported(n)
	}
	target, err := c.expr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	value, err := c.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.AugAssign, line(n)).
		Add(syntax.FieldTarget, target).
		Add(syntax.FieldValue, value)
	node.Op = op.Type()
	return node, nil
}

// optionalValue builds a statement whose only child is an optional
// expression, such as return.
func (c *converter) optionalValue(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(kind, line(n))
	if kids := named(n); len(kids) > 0 {
		value, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldValue, value)
	}
	return node, nil
}

func (c *converter) deleteStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Delete, line(n))
	kids := named(n)
	if len(kids) == 1 && kids[0].Type() == "expression_list" {
		kids = named(kids[0])
	}
	for _, k := range kids {
		target, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldTargets, target)
	}
	return node, nil
}

func (c *converter) raiseStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Raise, line(n))
	seenFrom := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if isExtra(child) {
			continue
		}
		if !child.IsNamed() {
			if child.Type() == "from" {
				seenFrom = true
			}
			continue
		}
		e, err := c.expr(child)
		if err != nil {
			return nil, err
		}
		if seenFrom {
			node.Add(syntax.FieldCause, e)
		} else {
			node.Add(syntax.FieldValue, e)
		}
	}
	return node, nil
}

func (c *converter) importStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Import, line(n))
	for _, k := range named(n) {
		a, err := c.alias(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldNames, a)
	}
	return node, nil
}

func (c *converter) importFrom(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.ImportFrom, line(n))
	kids := named(n)
	if n.Type() == "future_import_statement" {
		node.Value = "__future__"
	} else {
		if len(kids) == 0 {
			return nil, unsupported(n)
		}
		module := kids[0]
		kids = kids[1:]
		switch module.Type() {
		case "dotted_name":
			node.Value = c.dotted(module)
		case "relative_import":
			for _, part := range named(module) {
				switch part.Type() {
				case "import_prefix":
					node.Value += strings.TrimSpace(c.text(part))
				case "dotted_name":
					node.Value += c.dotted(part)
				}
			}
		default:
			return nil, unsupported(module)
		}
	}
	for _, k := range kids {
		a, err := c.alias(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldNames, a)
	}
	return node, nil
}

func (c *converter) alias(n *sitter.Node) (*syntax.Node, error) {
	a := syntax.New(syntax.Alias, line(n))
	switch n.Type() {
	case "dotted_name":
		a.Value = c.dotted(n)
	case "aliased_import":
		name := n.ChildByFieldName("name")
		as := n.ChildByFieldName("alias")
		if name == nil || as == nil {
			return nil, unsupported(n)
		}
		a.Value = c.dotted(name)
		a.Op = c.text(as)
	case "wildcard_import":
		a.Value = "*"
	default:
		return nil, unsupported(n)
	}
	return a, nil
}

// dotted joins the identifiers of a dotted_name, dropping any whitespace
// the source had around the dots.
func (c *converter) dotted(n *sitter.Node) string {
	var parts []string
	for _, k := range named(n) {
		parts = append(parts, c.text(k))
	}
	if len(parts) == 0 {
		return c.text(n)
	}
	return strings.Join(parts, ".")
}

func (c *converter) names(kind syntax.Kind, n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(kind, line(n))
	for _, k := range named(n) {
		name := syntax.New(syntax.Name, line(k))
		name.Value = c.text(k)
		node.Add(syntax.FieldNames, name)
	}
	return node, nil
}

func (c *converter) assertStmt(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) == 0 || len(kids) > 2 {
		return nil, unsupported(n)
	}
	node := syntax.New(syntax.Assert, line(n))
	test, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	node.Add(syntax.FieldTest, test)
	if len(kids) == 2 {
		msg, err := c.expr(kids[1])
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldMsg, msg)
	}
	return node, nil
}

// printStmt converts the Python 2 print statement. Op is "," when the
// statement ends with a comma, which suppresses the trailing newline.
func (c *converter) printStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Print, line(n))
	for _, k := range named(n) {
		if k.Type() == "chevron" {
			inner := named(k)
			if len(inner) != 1 {
				return nil, unsupported(k)
			}
			dest, err := c.expr(inner[0])
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldDest, dest)
			continue
		}
		value, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldValues, value)
	}
	if trailingComma(n) {
		node.Op = ","
	}
	return node, nil
}

func (c *converter) execStmt(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) == 0 {
		return nil, unsupported(n)
	}
	node := syntax.New(syntax.Exec, line(n))
	code, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	node.Add(syntax.FieldValue, code)
	for _, k := range kids[1:] {
		scope, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		node.Add(syntax.FieldIn, scope)
	}
	return node, nil
}

// typeAlias converts `type X = ...`. The grammar also accepts an ordinary
// assignment through a call on the builtin, as in `type(obj).attr = v`, as a
// type alias; a target that does not start with a name is rebuilt as that
// assignment.
func (c *converter) typeAlias(n *sitter.Node) (*syntax.Node, error) {
	kids := named(n)
	if len(kids) != 2 {
		return nil, unsupported(n)
	}
	value, err := c.expr(kids[1])
	if err != nil {
		return nil, err
	}
	if r, _ := utf8.DecodeRuneInString(c.text(kids[0])); r != '_' && !unicode.IsLetter(r) {
		target, err := c.typeCall(kids[0])
		if err != nil {
			return nil, err
		}
		return syntax.New(syntax.Assign, line(n)).
			Add(syntax.FieldTargets, target).
			Add(syntax.FieldValue, value), nil
	}
	target, err := c.expr(kids[0])
	if err != nil {
		return nil, err
	}
	return syntax.New(syntax.TypeAlias, line(n)).
		Add(syntax.FieldTarget, target).
		Add(syntax.FieldValue, value), nil
}

// typeCall converts the target of a misparsed type alias. Its innermost
// operand is whatever followed the type keyword, which becomes a call or
// subscript of the name type.
func (c *converter) typeCall(n *sitter.Node) (*syntax.Node, error) {
	ln := line(n)
	switch n.Type() {
	case "type":
		kids := named(n)
		if len(kids) != 1 {
			return nil, unsupported(n)
		}
		return c.typeCall(kids[0])
	case "parenthesized_expression", "tuple", "generator_expression":
		call := syntax.New(syntax.Call, ln).Add(syntax.FieldFunc, leaf(syntax.Name, ln, "type"))
		args := []*sitter.Node{n}
		if n.Type() != "generator_expression" {
			args = named(n)
		}
		for _, k := range args {
			a, err := c.expr(k)
			if err != nil {
				return nil, err
			}
			call.Add(syntax.FieldArgs, a)
		}
		return call, nil
	case "list":
		return c.index(n, leaf(syntax.Name, ln, "type"), named(n))
	case "attribute", "member_type":
		kids := named(n)
		if len(kids) != 2 {
			return nil, unsupported(n)
		}
		obj, err := c.typeCall(kids[0])
		if err != nil {
			return nil, err
		}
		attr := syntax.New(syntax.Attribute, ln).Add(syntax.FieldValue, obj)
		attr.Value = c.text(kids[1])
		return attr, nil
	case "subscript":
		kids := named(n)
		if len(kids) < 2 {
			return nil, unsupported(n)
		}
		value, err := c.typeCall(kids[0])
		if err != nil {
			return nil, err
		}
		return c.index(n, value, kids[1:])
	case "call":
		fn, err := c.typeCall(n.ChildByFieldName("function"))
		if err != nil {
			return nil, err
		}
		return c.applyArgs(n, fn)
	}
	return nil, unsupported(n)
}

// conditional builds an If or While node from a condition and a block.
func (c *converter) conditional(kind syntax.Kind, n *sitter.Node, cond, body *sitter.Node) (*syntax.Node, error) {
	if cond == nil || body == nil {
		return nil, unsupported(n)
	}
	test, err := c.expr(cond)
	if err != nil {
		return nil, err
	}
	stmts, err := c.block(body)
	if err != nil {
		return nil, err
	}
	return syntax.New(kind, line(n)).
		Add(syntax.FieldTest, test).
		Add(syntax.FieldBody, stmts...), nil
}

// ifStmt nests elif clauses as a single If in the else branch of the
// preceding one.
func (c *converter) ifStmt(n *sitter.Node) (*syntax.Node, error) {
	node, err := c.conditional(syntax.If, n, n.ChildByFieldName("condition"), n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	tail := node
	for _, k := range named(n) {
		switch k.Type() {
		case "elif_clause":
			elif, err := c.conditional(syntax.If, k, k.ChildByFieldName("condition"), k.ChildByFieldName("consequence"))
			if err != nil {
				return nil, err
			}
			tail.Add(syntax.FieldOrElse, elif)
			tail = elif
		case "else_clause":
			body, err := c.clauseBody(k)
			if err != nil {
				return nil, err
			}
			tail.Add(syntax.FieldOrElse, body...)
		}
	}
	return node, nil
}

func (c *converter) elseClause(node *syntax.Node, n *sitter.Node) error {
	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		return nil
	}
	body, err := c.clauseBody(alt)
	if err != nil {
		return err
	}
	node.Add(syntax.FieldOrElse, body...)
	return nil
}

func (c *converter) forStmt(n *sitter.Node) (*syntax.Node, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return nil, unsupported(n)
	}
	target, err := c.expr(left)
	if err != nil {
		return nil, err
	}
	iter, err := c.expr(right)
	if err != nil {
		return nil, err
	}
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.For, line(n)).
		Add(syntax.FieldTarget, target).
		Add(syntax.FieldIter, iter).
		Add(syntax.FieldBody, body...)
	node.Async = hasToken(n, "async")
	if err := c.elseClause(node, n); err != nil {
		return nil, err
	}
	return node, nil
}

func (c *converter) whileStmt(n *sitter.Node) (*syntax.Node, error) {
	node, err := c.conditional(syntax.While, n, n.ChildByFieldName("condition"), n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	if err := c.elseClause(node, n); err != nil {
		return nil, err
	}
	return node, nil
}

func (c *converter) tryStmt(n *sitter.Node) (*syntax.Node, error) {
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	node := syntax.New(syntax.Try, line(n)).Add(syntax.FieldBody, body...)
	for _, k := range named(n) {
		switch k.Type() {
		case "except_clause", "except_group_clause":
			h, err := c.handler(k)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldHandlers, h)
		case "else_clause":
			orelse, err := c.clauseBody(k)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldOrElse, orelse...)
		case "finally_clause":
			final, err := c.clauseBody(k)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldFinally, final...)
		}
	}
	return node, nil
}

// handler converts an except clause. Op is "*" for except* groups.
func (c *converter) handler(n *sitter.Node) (*syntax.Node, error) {
	h := syntax.New(syntax.ExceptHandler, line(n))
	if n.Type() == "except_group_clause" {
		h.Op = "*"
	}
	var body *sitter.Node
	var heads []*sitter.Node
	for _, child := range named(n) {
		if child.Type() == "block" {
			body = child
			continue
		}
		heads = append(heads, child)
	}
	if len(heads) == 1 && heads[0].Type() == "as_pattern" {
		heads = named(heads[0])
	}
	if len(heads) > 2 {
		return nil, unsupported(n)
	}
	if len(heads) > 0 {
		typ, err := c.expr(heads[0])
		if err != nil {
			return nil, err
		}
		h.Add(syntax.FieldType, typ)
	}
	if len(heads) == 2 {
		name, err := c.expr(unwrapTarget(heads[1]))
		if err != nil {
			return nil, err
		}
		h.Add(syntax.FieldName, name)
	}
	stmts, err := c.block(body)
	if err != nil {
		return nil, err
	}
	return h.Add(syntax.FieldBody, stmts...), nil
}

// unwrapTarget strips the as_pattern_target wrapper newer grammars put
// around the name bound by "as".
func unwrapTarget(n *sitter.Node) *sitter.Node {
	if n.Type() == "as_pattern_target" {
		if kids := named(n); len(kids) == 1 {
			return kids[0]
		}
	}
	return n
}

func (c *converter) withStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.With, line(n))
	node.Async = hasToken(n, "async")
	for _, k := range named(n) {
		if k.Type() != "with_clause" {
			continue
		}
		for _, item := range named(k) {
			wi, err := c.withItem(item)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldItems, wi)
		}
	}
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return node.Add(syntax.FieldBody, body...), nil
}

func (c *converter) withItem(n *sitter.Node) (*syntax.Node, error) {
	if n.Type() != "with_item" {
		return nil, unsupported(n)
	}
	kids := named(n)
	if len(kids) == 0 {
		return nil, unsupported(n)
	}
	ctxNode := kids[0]
	var target *sitter.Node
	if ctxNode.Type() == "as_pattern" {
		parts := named(ctxNode)
		if len(parts) != 2 {
			return nil, unsupported(ctxNode)
		}
		ctxNode, target = parts[0], parts[1]
	} else if len(kids) > 1 {
		target = kids[1]
	}

	item := syntax.New(syntax.WithItem, line(n))
	ctxExpr, err := c.expr(ctxNode)
	if err != nil {
		return nil, err
	}
	item.Add(syntax.FieldContext, ctxExpr)
	if target != nil {
		t, err := c.expr(unwrapTarget(target))
		if err != nil {
			return nil, err
		}
		item.Add(syntax.FieldTarget, t)
	}
	return item, nil
}

func (c *converter) matchStmt(n *sitter.Node) (*syntax.Node, error) {
	node := syntax.New(syntax.Match, line(n))
	for _, k := range named(n) {
		if k.Type() != "block" {
			subject, err := c.expr(k)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldSubject, subject)
			continue
		}
		for _, clause := range named(k) {
			if clause.Type() != "case_clause" {
				return nil, unsupported(clause)
			}
			mc, err := c.caseClause(clause)
			if err != nil {
				return nil, err
			}
			node.Add(syntax.FieldCases, mc)
		}
	}
	return node, nil
}

// caseClause keeps each pattern as normalized token text; patterns are
// matched against, never evaluated, so their inner structure is not needed.
func (c *converter) caseClause(n *sitter.Node) (*syntax.Node, error) {
	mc := syntax.New(syntax.MatchCase, line(n))
	var body *sitter.Node
	for _, k := range named(n) {
		switch k.Type() {
		case "case_pattern":
			p := syntax.New(syntax.Pattern, line(k))
			p.Value = c.tokens(k)
			mc.Add(syntax.FieldPatterns, p)
		case "if_clause":
			inner := named(k)
			if len(inner) != 1 {
				return nil, unsupported(k)
			}
			guard, err := c.expr(inner[0])
			if err != nil {
				return nil, err
			}
			mc.Add(syntax.FieldGuard, guard)
		case "block":
			body = k
		default:
			return nil, unsupported(k)
		}
	}
	if body == nil {
		return nil, unsupported(n)
	}
	stmts, err := c.block(body)
	if err != nil {
		return nil, err
	}
	return mc.Add(syntax.FieldBody, stmts...), nil
}

func (c *converter) decorated(n *sitter.Node) (*syntax.Node, error) {
	var decorators []*syntax.Node
	for _, k := range named(n) {
		if k.Type() != "decorator" {
			continue
		}
		inner := named(k)
		if len(inner) != 1 {
			return nil, unsupported(k)
		}
		d, err := c.expr(inner[0])
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return nil, unsupported(n)
	}
	switch def.Type() {
	case "function_definition":
		return c.function(def, decorators)
	case "class_definition":
		return c.class(def, decorators)
	}
	return nil, unsupported(def)
}

func (c *converter) function(n *sitter.Node, decorators []*syntax.Node) (*syntax.Node, error) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil, unsupported(n)
	}
	fn := syntax.New(syntax.FunctionDef, line(n))
	fn.Value = c.text(name)
	fn.Async = hasToken(n, "async")
	fn.Add(syntax.FieldDecorators, decorators...)
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		fn.Add(syntax.FieldTypeParams, c.verbatim(tp))
	}

	params, err := c.params(n.ChildByFieldName("parameters"))
	if err != nil {
		return nil, err
	}
	fn.Add(syntax.FieldParams, params...)

	if rt := n.ChildByFieldName("return_type"); rt != nil {
		returns, err := c.expr(rt)
		if err != nil {
			return nil, err
		}
		fn.Add(syntax.FieldReturns, returns)
	}

	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return fn.Add(syntax.FieldBody, body...), nil
}

func (c *converter) class(n *sitter.Node, decorators []*syntax.Node) (*syntax.Node, error) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil, unsupported(n)
	}
	cls := syntax.New(syntax.ClassDef, line(n))
	cls.Value = c.text(name)
	cls.Add(syntax.FieldDecorators, decorators...)
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		cls.Add(syntax.FieldTypeParams, c.verbatim(tp))
	}
	if sc := n.ChildByFieldName("superclasses"); sc != nil {
		bases, err := c.arguments(sc)
		if err != nil {
			return nil, err
		}
		cls.Add(syntax.FieldBases, bases...)
	}
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return cls.Add(syntax.FieldBody, body...), nil
}

func (c *converter) params(n *sitter.Node) ([]*syntax.Node, error) {
	if n == nil {
		return nil, nil
	}
	var out []*syntax.Node
	for _, k := range named(n) {
		p, err := c.param(k)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// param converts one formal parameter. Op holds "*" or "**" for variadic
// parameters, "*" alone for the keyword-only marker and "/" for the
// positional-only marker.
func (c *converter) param(n *sitter.Node) (*syntax.Node, error) {
	p := syntax.New(syntax.Param, line(n))
	switch n.Type() {
	case "identifier", "keyword_identifier":
		p.Value = c.text(n)
	case "list_splat_pattern", "dictionary_splat_pattern":
		if err := c.splatParam(p, n); err != nil {
			return nil, err
		}
	case "keyword_separator":
		p.Op = "*"
	case "positional_separator":
		p.Op = "/"
	case "tuple_pattern":
		t, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		p.Add(syntax.FieldTarget, t)
	case "typed_parameter":
		kids := named(n)
		if len(kids) == 0 {
			return nil, unsupported(n)
		}
		switch inner := kids[0]; inner.Type() {
		case "list_splat_pattern", "dictionary_splat_pattern":
			if err := c.splatParam(p, inner); err != nil {
				return nil, err
			}
		default:
			p.Value = c.text(inner)
		}
		if err := c.annotate(p, n); err != nil {
			return nil, err
		}
	case "default_parameter", "typed_default_parameter":
		name := n.ChildByFieldName("name")
		value := n.ChildByFieldName("value")
		if name == nil || value == nil {
			return nil, unsupported(n)
		}
		if name.Type() == "tuple_pattern" {
			t, err := c.expr(name)
			if err != nil {
				return nil, err
			}
			p.Add(syntax.FieldTarget, t)
		} else {
			p.Value = c.text(name)
		}
		if err := c.annotate(p, n); err != nil {
			return nil, err
		}
		def, err := c.expr(value)
		if err != nil {
			return nil, err
		}
		p.Add(syntax.FieldDefault, def)
	default:
		return nil, unsupported(n)
	}
	return p, nil
}

func (c *converter) splatParam(p *syntax.Node, n *sitter.Node) error {
	p.Op = "*"
	if n.Type() == "dictionary_splat_pattern" {
		p.Op = "**"
	}
	kids := named(n)
	if len(kids) != 1 {
		return unsupported(n)
	}
	p.Value = c.text(kids[0])
	return nil
}

func (c *converter) annotate(p *syntax.Node, n *sitter.Node) error {
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return nil
	}
	ann, err := c.expr(typ)
	if err != nil {
		return err
	}
	p.Add(syntax.FieldAnnotation, ann)
	return nil
}

// verbatim keeps n as a Pattern holding its normalized token text.
func (c *converter) verbatim(n *sitter.Node) *syntax.Node {
	p := syntax.New(syntax.Pattern, line(n))
	p.Value = c.tokens(n)
	return p
}

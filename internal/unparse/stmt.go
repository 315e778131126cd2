package unparse

import (
	"strings"

	"github.com/phobologic/grepy/internal/syntax"
)

func module(b *strings.Builder, n *syntax.Node, depth int) error {
	for _, s := range n.Get(syntax.FieldBody) {
		if err := stmt(b, s, depth); err != nil {
			return err
		}
	}
	return nil
}

func decorators(b *strings.Builder, n *syntax.Node, depth int) error {
	for _, d := range n.Get(syntax.FieldDecorators) {
		s, err := expr(d, precTest)
		if err != nil {
			return err
		}
		writeLine(b, depth, "@"+s)
	}
	return nil
}

// typeParams returns the bracketed type parameter list of a definition,
// which the parser keeps as verbatim token text.
func typeParams(n *syntax.Node) string {
	var s string
	for _, tp := range n.Get(syntax.FieldTypeParams) {
		s += tp.Value
	}
	return s
}

func functionDef(b *strings.Builder, n *syntax.Node, depth int) error {
	if err := decorators(b, n, depth); err != nil {
		return err
	}
	params, err := exprs(n.Get(syntax.FieldParams), precTest)
	if err != nil {
		return err
	}
	head := "def " + n.Value + typeParams(n) + "(" + params + ")"
	if n.Async {
		head = "async " + head
	}
	if ret := n.First(syntax.FieldReturns); ret != nil {
		s, err := expr(ret, precTest)
		if err != nil {
			return err
		}
		head += " -> " + s
	}
	return clause(b, head, n.Get(syntax.FieldBody), depth)
}

func classDef(b *strings.Builder, n *syntax.Node, depth int) error {
	if err := decorators(b, n, depth); err != nil {
		return err
	}
	head := "class " + n.Value + typeParams(n)
	if bases := n.Get(syntax.FieldBases); len(bases) > 0 {
		s, err := exprs(bases, precTest)
		if err != nil {
			return err
		}
		head += "(" + s + ")"
	}
	return clause(b, head, n.Get(syntax.FieldBody), depth)
}

func exprStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := expr(n.First(syntax.FieldValue), precYield)
	if err != nil {
		return err
	}
	writeLine(b, depth, s)
	return nil
}

func assign(b *strings.Builder, n *syntax.Node, depth int) error {
	var parts []string
	for _, t := range n.Get(syntax.FieldTargets) {
		s, err := expr(t, precTuple)
		if err != nil {
			return err
		}
		parts = append(parts, s)
	}
	v, err := assignedValue(n.First(syntax.FieldValue))
	if err != nil {
		return err
	}
	writeLine(b, depth, strings.Join(append(parts, v), " = "))
	return nil
}

func augAssign(b *strings.Builder, n *syntax.Node, depth int) error {
	target, err := expr(n.First(syntax.FieldTarget), precTuple)
	if err != nil {
		return err
	}
	v, err := assignedValue(n.First(syntax.FieldValue))
	if err != nil {
		return err
	}
	writeLine(b, depth, target+" "+n.Op+" "+v)
	return nil
}

func annAssign(b *strings.Builder, n *syntax.Node, depth int) error {
	target, err := expr(n.First(syntax.FieldTarget), precTest)
	if err != nil {
		return err
	}
	ann, err := expr(n.First(syntax.FieldAnnotation), precTest)
	if err != nil {
		return err
	}
	s := target + ": " + ann
	if v := n.First(syntax.FieldValue); v != nil {
		vs, err := assignedValue(v)
		if err != nil {
			return err
		}
		s += " = " + vs
	}
	writeLine(b, depth, s)
	return nil
}

// assignedValue renders the right-hand side of an assignment, where a bare
// yield is allowed. A tuple holding a starred item keeps its parentheses.
func assignedValue(n *syntax.Node) (string, error) {
	s, err := expr(n, precYield)
	if err != nil {
		return "", err
	}
	if n.Kind == syntax.Tuple && hasStarred(n) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func hasStarred(n *syntax.Node) bool {
	for _, e := range n.Get(syntax.FieldElts) {
		if e.Kind == syntax.Starred {
			return true
		}
	}
	return false
}

// withOptional appends " " and the rendering of the first node in f, if any.
func withOptional(s string, n *syntax.Node, f syntax.Field, ctx prec) (string, error) {
	v := n.First(f)
	if v == nil {
		return s, nil
	}
	vs, err := expr(v, ctx)
	if err != nil {
		return "", err
	}
	return s + " " + vs, nil
}

func returnStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := withOptional("return", n, syntax.FieldValue, precTuple)
	if err != nil {
		return err
	}
	writeLine(b, depth, s)
	return nil
}

func deleteStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := exprs(n.Get(syntax.FieldTargets), precTest)
	if err != nil {
		return err
	}
	writeLine(b, depth, "del "+s)
	return nil
}

func raiseStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := withOptional("raise", n, syntax.FieldValue, precTuple)
	if err != nil {
		return err
	}
	if n.First(syntax.FieldCause) != nil {
		if s, err = withOptional(s+" from", n, syntax.FieldCause, precTest); err != nil {
			return err
		}
	}
	writeLine(b, depth, s)
	return nil
}

func keywordStmt(kw string) stmtRule {
	return func(b *strings.Builder, _ *syntax.Node, depth int) error {
		writeLine(b, depth, kw)
		return nil
	}
}

func importStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := exprs(n.Get(syntax.FieldNames), precTest)
	if err != nil {
		return err
	}
	writeLine(b, depth, "import "+s)
	return nil
}

func importFrom(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := exprs(n.Get(syntax.FieldNames), precTest)
	if err != nil {
		return err
	}
	writeLine(b, depth, "from "+n.Value+" import "+s)
	return nil
}

func namesStmt(kw string) stmtRule {
	return func(b *strings.Builder, n *syntax.Node, depth int) error {
		s, err := exprs(n.Get(syntax.FieldNames), precTest)
		if err != nil {
			return err
		}
		writeLine(b, depth, kw+" "+s)
		return nil
	}
}

func assertStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := withOptional("assert", n, syntax.FieldTest, precTest)
	if err != nil {
		return err
	}
	if msg := n.First(syntax.FieldMsg); msg != nil {
		ms, err := expr(msg, precTest)
		if err != nil {
			return err
		}
		s += ", " + ms
	}
	writeLine(b, depth, s)
	return nil
}

// printStmt renders the Python 2 print statement, including the >>file
// destination and the newline-suppressing trailing comma.
func printStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	var parts []string
	if dest := n.First(syntax.FieldDest); dest != nil {
		s, err := expr(dest, precTest)
		if err != nil {
			return err
		}
		parts = append(parts, ">>"+s)
	}
	for _, v := range n.Get(syntax.FieldValues) {
		s, err := expr(v, precTest)
		if err != nil {
			return err
		}
		parts = append(parts, s)
	}
	s := "print"
	if len(parts) > 0 {
		s += " " + strings.Join(parts, ", ")
	}
	writeLine(b, depth, s+n.Op)
	return nil
}

func execStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	s, err := withOptional("exec", n, syntax.FieldValue, precTest)
	if err != nil {
		return err
	}
	if scopes := n.Get(syntax.FieldIn); len(scopes) > 0 {
		in, err := exprs(scopes, precTest)
		if err != nil {
			return err
		}
		s += " in " + in
	}
	writeLine(b, depth, s)
	return nil
}

func typeAlias(b *strings.Builder, n *syntax.Node, depth int) error {
	target, err := expr(n.First(syntax.FieldTarget), precAtom)
	if err != nil {
		return err
	}
	v, err := expr(n.First(syntax.FieldValue), precTest)
	if err != nil {
		return err
	}
	writeLine(b, depth, "type "+target+" = "+v)
	return nil
}

// orElse writes an else block when stmts is non-empty.
func orElse(b *strings.Builder, stmts []*syntax.Node, depth int) error {
	if len(stmts) == 0 {
		return nil
	}
	return clause(b, "else", stmts, depth)
}

// ifStmt collapses an else branch holding a single If into elif.
func ifStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	kw := "if"
	for {
		test, err := expr(n.First(syntax.FieldTest), precTest)
		if err != nil {
			return err
		}
		if err := clause(b, kw+" "+test, n.Get(syntax.FieldBody), depth); err != nil {
			return err
		}
		orelse := n.Get(syntax.FieldOrElse)
		if len(orelse) == 1 && orelse[0].Kind == syntax.If {
			n, kw = orelse[0], "elif"
			continue
		}
		return orElse(b, orelse, depth)
	}
}

func forStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	target, err := expr(n.First(syntax.FieldTarget), precTuple)
	if err != nil {
		return err
	}
	iter, err := expr(n.First(syntax.FieldIter), precTuple)
	if err != nil {
		return err
	}
	head := "for " + target + " in " + iter
	if n.Async {
		head = "async " + head
	}
	if err := clause(b, head, n.Get(syntax.FieldBody), depth); err != nil {
		return err
	}
	return orElse(b, n.Get(syntax.FieldOrElse), depth)
}

func whileStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	test, err := expr(n.First(syntax.FieldTest), precTest)
	if err != nil {
		return err
	}
	if err := clause(b, "while "+test, n.Get(syntax.FieldBody), depth); err != nil {
		return err
	}
	return orElse(b, n.Get(syntax.FieldOrElse), depth)
}

func tryStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	if err := clause(b, "try", n.Get(syntax.FieldBody), depth); err != nil {
		return err
	}
	for _, h := range n.Get(syntax.FieldHandlers) {
		if err := stmt(b, h, depth); err != nil {
			return err
		}
	}
	if err := orElse(b, n.Get(syntax.FieldOrElse), depth); err != nil {
		return err
	}
	if final := n.Get(syntax.FieldFinally); len(final) > 0 {
		return clause(b, "finally", final, depth)
	}
	return nil
}

func exceptHandler(b *strings.Builder, n *syntax.Node, depth int) error {
	head, err := withOptional("except"+n.Op, n, syntax.FieldType, precTest)
	if err != nil {
		return err
	}
	if n.First(syntax.FieldName) != nil {
		if head, err = withOptional(head+" as", n, syntax.FieldName, precTest); err != nil {
			return err
		}
	}
	return clause(b, head, n.Get(syntax.FieldBody), depth)
}

func withStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	items, err := exprs(n.Get(syntax.FieldItems), precTest)
	if err != nil {
		return err
	}
	head := "with " + items
	if n.Async {
		head = "async " + head
	}
	return clause(b, head, n.Get(syntax.FieldBody), depth)
}

func matchStmt(b *strings.Builder, n *syntax.Node, depth int) error {
	subjects, err := exprs(n.Get(syntax.FieldSubject), precTest)
	if err != nil {
		return err
	}
	writeLine(b, depth, "match "+subjects+":")
	for _, c := range n.Get(syntax.FieldCases) {
		if err := stmt(b, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func matchCase(b *strings.Builder, n *syntax.Node, depth int) error {
	patterns, err := exprs(n.Get(syntax.FieldPatterns), precTest)
	if err != nil {
		return err
	}
	head := "case " + patterns
	if n.First(syntax.FieldGuard) != nil {
		if head, err = withOptional(head+" if", n, syntax.FieldGuard, precTest); err != nil {
			return err
		}
	}
	return clause(b, head, n.Get(syntax.FieldBody), depth)
}

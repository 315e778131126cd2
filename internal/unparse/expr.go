package unparse

import (
	"strings"

	"github.com/phobologic/grepy/internal/syntax"
)

func value(n *syntax.Node) (string, error) {
	return n.Value, nil
}

// binary renders BinOp and BoolOp. Operators are left-associative except
// "**", whose right operand binds at unary level so that a ** -b needs no
// parentheses. The left operand of "**" must be a primary: an await there
// is parenthesized, since "await a ** b" awaits the power.
func binary(n *syntax.Node) (string, error) {
	p, ok := binaryPrec[n.Op]
	if !ok {
		return "", &syntax.UnsupportedError{Kind: string(n.Kind) + " " + n.Op, Line: n.Line}
	}
	lctx, rctx := p, p+1
	if n.Op == "**" {
		lctx, rctx = precAtom, precFactor
	}
	l, err := expr(n.First(syntax.FieldLeft), lctx)
	if err != nil {
		return "", err
	}
	r, err := expr(n.First(syntax.FieldRight), rctx)
	if err != nil {
		return "", err
	}
	return l + " " + n.Op + " " + r, nil
}

func unary(n *syntax.Node) (string, error) {
	if n.Op == "not" {
		s, err := expr(n.First(syntax.FieldOperand), precNot)
		if err != nil {
			return "", err
		}
		return "not " + s, nil
	}
	s, err := expr(n.First(syntax.FieldOperand), precFactor)
	if err != nil {
		return "", err
	}
	return n.Op + s, nil
}

func compare(n *syntax.Node) (string, error) {
	values := n.Get(syntax.FieldValues)
	if len(values) != len(n.Ops)+1 {
		return "", unsupported(n)
	}
	s, err := expr(values[0], precCmp+1)
	if err != nil {
		return "", err
	}
	for i, op := range n.Ops {
		v, err := expr(values[i+1], precCmp+1)
		if err != nil {
			return "", err
		}
		s += " " + op + " " + v
	}
	return s, nil
}

func ifExp(n *syntax.Node) (string, error) {
	body, err := expr(n.First(syntax.FieldBody), precTest+1)
	if err != nil {
		return "", err
	}
	test, err := expr(n.First(syntax.FieldTest), precTest+1)
	if err != nil {
		return "", err
	}
	orelse, err := expr(n.First(syntax.FieldOrElse), precTest)
	if err != nil {
		return "", err
	}
	return body + " if " + test + " else " + orelse, nil
}

func namedExpr(n *syntax.Node) (string, error) {
	target, err := expr(n.First(syntax.FieldTarget), precAtom)
	if err != nil {
		return "", err
	}
	v, err := expr(n.First(syntax.FieldValue), precTest)
	if err != nil {
		return "", err
	}
	return target + " := " + v, nil
}

func await(n *syntax.Node) (string, error) {
	s, err := expr(n.First(syntax.FieldValue), precAtom)
	if err != nil {
		return "", err
	}
	return "await " + s, nil
}

func lambda(n *syntax.Node) (string, error) {
	params, err := exprs(n.Get(syntax.FieldParams), precTest)
	if err != nil {
		return "", err
	}
	body, err := expr(n.First(syntax.FieldBody), precTest)
	if err != nil {
		return "", err
	}
	if params == "" {
		return "lambda: " + body, nil
	}
	return "lambda " + params + ": " + body, nil
}

// primary renders the object of an attribute, call or subscript. Integer
// literals are parenthesized so the dot is not read as a decimal point.
func primary(n *syntax.Node) (string, error) {
	s, err := expr(n, precAtom)
	if err != nil {
		return "", err
	}
	if n.Kind == syntax.Literal && isInteger(n.Value) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

func attribute(n *syntax.Node) (string, error) {
	obj, err := primary(n.First(syntax.FieldValue))
	if err != nil {
		return "", err
	}
	return obj + "." + n.Value, nil
}

func subscript(n *syntax.Node) (string, error) {
	obj, err := primary(n.First(syntax.FieldValue))
	if err != nil {
		return "", err
	}
	index, err := exprs(n.Get(syntax.FieldIndex), precTest)
	if err != nil {
		return "", err
	}
	return obj + "[" + index + "]", nil
}

func slice(n *syntax.Node) (string, error) {
	var parts [3]string
	for i, f := range []syntax.Field{syntax.FieldLower, syntax.FieldUpper, syntax.FieldStep} {
		v := n.First(f)
		if v == nil {
			continue
		}
		s, err := expr(v, precTest)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	s := parts[0] + ":" + parts[1]
	if n.Op == "::" || parts[2] != "" {
		s += ":" + parts[2]
	}
	return s, nil
}

func call(n *syntax.Node) (string, error) {
	fn, err := primary(n.First(syntax.FieldFunc))
	if err != nil {
		return "", err
	}
	args := n.Get(syntax.FieldArgs)
	if len(args) == 1 && args[0].Kind == syntax.GeneratorExp {
		g, err := expr(args[0], precAtom)
		if err != nil {
			return "", err
		}
		return fn + g, nil
	}
	s, err := exprs(args, precTest)
	if err != nil {
		return "", err
	}
	return fn + "(" + s + ")", nil
}

func keyword(n *syntax.Node) (string, error) {
	v, err := expr(n.First(syntax.FieldValue), precTest)
	if err != nil {
		return "", err
	}
	return n.Value + "=" + v, nil
}

func prefixed(op string) exprRule {
	return func(n *syntax.Node) (string, error) {
		s, err := expr(n.First(syntax.FieldValue), precBor)
		if err != nil {
			return "", err
		}
		return op + s, nil
	}
}

// tuple renders the elements without brackets; expr adds them where the
// surrounding context requires.
func tuple(n *syntax.Node) (string, error) {
	elts := n.Get(syntax.FieldElts)
	switch len(elts) {
	case 0:
		return "()", nil
	case 1:
		s, err := expr(elts[0], precTest)
		if err != nil {
			return "", err
		}
		return s + ",", nil
	}
	return exprs(elts, precTest)
}

func list(n *syntax.Node) (string, error) {
	s, err := exprs(n.Get(syntax.FieldElts), precTest)
	if err != nil {
		return "", err
	}
	return "[" + s + "]", nil
}

func set(n *syntax.Node) (string, error) {
	elts := n.Get(syntax.FieldElts)
	if len(elts) == 0 {
		return "", &syntax.UnsupportedError{Kind: "empty set literal", Line: n.Line}
	}
	s, err := exprs(elts, precTest)
	if err != nil {
		return "", err
	}
	return "{" + s + "}", nil
}

func dict(n *syntax.Node) (string, error) {
	s, err := exprs(n.Get(syntax.FieldElts), precTest)
	if err != nil {
		return "", err
	}
	return "{" + s + "}", nil
}

func pair(n *syntax.Node) (string, error) {
	k, err := expr(n.First(syntax.FieldKey), precTest)
	if err != nil {
		return "", err
	}
	v, err := expr(n.First(syntax.FieldValue), precTest)
	if err != nil {
		return "", err
	}
	return k + ": " + v, nil
}

func comprehension(open, close string) exprRule {
	return func(n *syntax.Node) (string, error) {
		parts := make([]string, 0, 1+len(n.Get(syntax.FieldGenerators)))
		elt, err := expr(n.First(syntax.FieldElt), precTest)
		if err != nil {
			return "", err
		}
		parts = append(parts, elt)
		for _, g := range n.Get(syntax.FieldGenerators) {
			s, err := expr(g, precAtom)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return open + strings.Join(parts, " ") + close, nil
	}
}

// generator renders one "for ... in ..." clause of a comprehension along
// with its filters.
func generator(n *syntax.Node) (string, error) {
	target, err := expr(n.First(syntax.FieldTarget), precTuple)
	if err != nil {
		return "", err
	}
	iters := n.Get(syntax.FieldIter)
	var iter string
	if len(iters) == 1 {
		iter, err = expr(iters[0], precOr)
	} else {
		iter, err = exprs(iters, precOr)
	}
	if err != nil {
		return "", err
	}
	s := "for " + target + " in " + iter
	if n.Async {
		s = "async " + s
	}
	for _, cond := range n.Get(syntax.FieldIfs) {
		c, err := expr(cond, precOr)
		if err != nil {
			return "", err
		}
		s += " if " + c
	}
	return s, nil
}

func yield(n *syntax.Node) (string, error) {
	return withOptional("yield", n, syntax.FieldValue, precTuple)
}

func yieldFrom(n *syntax.Node) (string, error) {
	return withOptional("yield from", n, syntax.FieldValue, precTest)
}

// param renders one formal parameter of a def or lambda.
func param(n *syntax.Node) (string, error) {
	s := n.Op
	if n.Op == "/" {
		return s, nil
	}
	if t := n.First(syntax.FieldTarget); t != nil {
		ts, err := expr(t, precAtom)
		if err != nil {
			return "", err
		}
		s += ts
	} else {
		s += n.Value
	}
	ann := n.First(syntax.FieldAnnotation)
	if ann != nil {
		as, err := expr(ann, precTest)
		if err != nil {
			return "", err
		}
		s += ": " + as
	}
	if def := n.First(syntax.FieldDefault); def != nil {
		ds, err := expr(def, precTest)
		if err != nil {
			return "", err
		}
		if ann != nil {
			s += " = " + ds
		} else {
			s += "=" + ds
		}
	}
	return s, nil
}

func alias(n *syntax.Node) (string, error) {
	if n.Op != "" {
		return n.Value + " as " + n.Op, nil
	}
	return n.Value, nil
}

// withItem renders one context manager. A conditional or lambda context is
// parenthesized so a following "as" is not read as part of it.
func withItem(n *syntax.Node) (string, error) {
	s, err := expr(n.First(syntax.FieldContext), precTest+1)
	if err != nil {
		return "", err
	}
	if n.First(syntax.FieldTarget) == nil {
		return s, nil
	}
	return withOptional(s+" as", n, syntax.FieldTarget, precTest)
}

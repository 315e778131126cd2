package unparse

import "github.com/phobologic/grepy/internal/syntax"

// prec orders Python expression binding strength, loosest first. An
// expression is parenthesized when its own precedence is lower than the
// precedence its position requires.
type prec int

const (
	precNamed prec = iota + 1 // :=
	precYield                 // yield, yield from
	precTuple                 // a, b
	precTest                  // lambda, x if c else y
	precOr
	precAnd
	precNot
	precCmp
	precBor
	precBxor
	precBand
	precShift
	precArith
	precTerm
	precFactor // unary + - ~
	precPower
	precAwait
	precAtom
)

var binaryPrec = map[string]prec{
	"or":  precOr,
	"and": precAnd,
	"|":   precBor,
	"^":   precBxor,
	"&":   precBand,
	"<<":  precShift,
	">>":  precShift,
	"+":   precArith,
	"-":   precArith,
	"*":   precTerm,
	"/":   precTerm,
	"//":  precTerm,
	"%":   precTerm,
	"@":   precTerm,
	"**":  precPower,
}

// precOf returns the binding strength of n. Nodes that only appear in
// fixed syntactic slots (keywords, slices, starred items) report precAtom
// so they are never wrapped.
func precOf(n *syntax.Node) prec {
	switch n.Kind {
	case syntax.NamedExpr:
		return precNamed
	case syntax.Tuple:
		if len(n.Get(syntax.FieldElts)) == 0 {
			return precAtom
		}
		return precTuple
	case syntax.Yield, syntax.YieldFrom:
		return precYield
	case syntax.Lambda, syntax.IfExp:
		return precTest
	case syntax.BoolOp, syntax.BinOp:
		if p, ok := binaryPrec[n.Op]; ok {
			return p
		}
		return precAtom
	case syntax.UnaryOp:
		if n.Op == "not" {
			return precNot
		}
		return precFactor
	case syntax.Compare:
		return precCmp
	case syntax.Await:
		return precAwait
	}
	return precAtom
}

// Package unparse renders syntax trees back into Python source.
//
// Output is syntactically equivalent to the parsed input, not a copy of it:
// comments and blank lines are gone, indentation is four spaces, and
// parentheses appear exactly where operator precedence requires them.
package unparse

import (
	"errors"
	"strings"

	"github.com/phobologic/grepy/internal/syntax"
)

const indentUnit = "    "

type stmtRule func(b *strings.Builder, n *syntax.Node, depth int) error

type exprRule func(n *syntax.Node) (string, error)

var (
	stmtRules map[syntax.Kind]stmtRule
	exprRules map[syntax.Kind]exprRule
)

// The tables are filled in init because the rules recurse through them.
func init() {
	stmtRules = map[syntax.Kind]stmtRule{
		syntax.Module:        module,
		syntax.FunctionDef:   functionDef,
		syntax.ClassDef:      classDef,
		syntax.ExprStmt:      exprStmt,
		syntax.Assign:        assign,
		syntax.AugAssign:     augAssign,
		syntax.AnnAssign:     annAssign,
		syntax.Return:        returnStmt,
		syntax.Delete:        deleteStmt,
		syntax.Raise:         raiseStmt,
		syntax.Pass:          keywordStmt("pass"),
		syntax.Break:         keywordStmt("break"),
		syntax.Continue:      keywordStmt("continue"),
		syntax.Import:        importStmt,
		syntax.ImportFrom:    importFrom,
		syntax.Global:        namesStmt("global"),
		syntax.Nonlocal:      namesStmt("nonlocal"),
		syntax.Assert:        assertStmt,
		syntax.Print:         printStmt,
		syntax.Exec:          execStmt,
		syntax.TypeAlias:     typeAlias,
		syntax.If:            ifStmt,
		syntax.For:           forStmt,
		syntax.While:         whileStmt,
		syntax.Try:           tryStmt,
		syntax.ExceptHandler: exceptHandler,
		syntax.With:          withStmt,
		syntax.Match:         matchStmt,
		syntax.MatchCase:     matchCase,
	}
	exprRules = map[syntax.Kind]exprRule{
		syntax.Name:          value,
		syntax.Literal:       value,
		syntax.Pattern:       value,
		syntax.BoolOp:        binary,
		syntax.BinOp:         binary,
		syntax.UnaryOp:       unary,
		syntax.Compare:       compare,
		syntax.IfExp:         ifExp,
		syntax.NamedExpr:     namedExpr,
		syntax.Await:         await,
		syntax.Lambda:        lambda,
		syntax.Attribute:     attribute,
		syntax.Subscript:     subscript,
		syntax.Slice:         slice,
		syntax.Call:          call,
		syntax.Keyword:       keyword,
		syntax.Starred:       prefixed("*"),
		syntax.DoubleStarred: prefixed("**"),
		syntax.Tuple:         tuple,
		syntax.List:          list,
		syntax.Set:           set,
		syntax.Dict:          dict,
		syntax.Pair:          pair,
		syntax.ListComp:      comprehension("[", "]"),
		syntax.SetComp:       comprehension("{", "}"),
		syntax.DictComp:      comprehension("{", "}"),
		syntax.GeneratorExp:  comprehension("(", ")"),
		syntax.Comprehension: generator,
		syntax.Yield:         yield,
		syntax.YieldFrom:     yieldFrom,
		syntax.Param:         param,
		syntax.Alias:         alias,
		syntax.WithItem:      withItem,
	}
}

// Render returns Python source for n and everything beneath it. Statements
// render as indented lines without a trailing newline; expressions render
// on a single line. A node kind without a rendering rule yields a
// *syntax.UnsupportedError.
func Render(n *syntax.Node) (string, error) {
	if n == nil {
		return "", errors.New("unparse: nil node")
	}
	if _, ok := stmtRules[n.Kind]; ok {
		var b strings.Builder
		if err := stmt(&b, n, 0); err != nil {
			return "", err
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	}
	return expr(n, precYield)
}

func unsupported(n *syntax.Node) error {
	return &syntax.UnsupportedError{Kind: string(n.Kind), Line: n.Line}
}

func stmt(b *strings.Builder, n *syntax.Node, depth int) error {
	rule, ok := stmtRules[n.Kind]
	if !ok {
		return unsupported(n)
	}
	return rule(b, n, depth)
}

func expr(n *syntax.Node, ctx prec) (string, error) {
	if n == nil {
		return "", &syntax.UnsupportedError{Kind: "missing expression"}
	}
	rule, ok := exprRules[n.Kind]
	if !ok {
		return "", unsupported(n)
	}
	s, err := rule(n)
	if err != nil {
		return "", err
	}
	if precOf(n) < ctx {
		return "(" + s + ")", nil
	}
	return s, nil
}

// exprs renders each node at ctx and joins the results with ", ".
func exprs(nodes []*syntax.Node, ctx prec) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := expr(n, ctx)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), nil
}

func writeLine(b *strings.Builder, depth int, s string) {
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteString(s)
	b.WriteByte('\n')
}

func block(b *strings.Builder, stmts []*syntax.Node, depth int) error {
	if len(stmts) == 0 {
		writeLine(b, depth, "pass")
		return nil
	}
	for _, s := range stmts {
		if err := stmt(b, s, depth); err != nil {
			return err
		}
	}
	return nil
}

// clause writes "head:" followed by an indented block.
func clause(b *strings.Builder, head string, stmts []*syntax.Node, depth int) error {
	writeLine(b, depth, head+":")
	return block(b, stmts, depth+1)
}

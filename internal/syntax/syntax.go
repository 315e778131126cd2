// Package syntax defines the Python syntax tree that grepy searches and
// renders. Trees are built once by the parse package and treated as
// read-only afterwards.
package syntax

import (
	"fmt"
	"strings"
)

// Kind tags the syntactic category of a Node.
type Kind string

// Module and definition kinds.
const (
	Module      Kind = "Module"
	FunctionDef Kind = "FunctionDef"
	ClassDef    Kind = "ClassDef"
)

// Statement kinds.
const (
	ExprStmt      Kind = "Expr"
	Assign        Kind = "Assign"
	AugAssign     Kind = "AugAssign"
	AnnAssign     Kind = "AnnAssign"
	Return        Kind = "Return"
	Delete        Kind = "Delete"
	Raise         Kind = "Raise"
	Pass          Kind = "Pass"
	Break         Kind = "Break"
	Continue      Kind = "Continue"
	Import        Kind = "Import"
	ImportFrom    Kind = "ImportFrom"
	Global        Kind = "Global"
	Nonlocal      Kind = "Nonlocal"
	Assert        Kind = "Assert"
	If            Kind = "If"
	For           Kind = "For"
	While         Kind = "While"
	Try           Kind = "Try"
	ExceptHandler Kind = "ExceptHandler"
	With          Kind = "With"
	WithItem      Kind = "WithItem"
	Match         Kind = "Match"
	MatchCase     Kind = "MatchCase"
	TypeAlias     Kind = "TypeAlias"
	Print         Kind = "Print"
	Exec          Kind = "Exec"
)

// Expression kinds.
const (
	Name          Kind = "Name"
	Literal       Kind = "Literal"
	BoolOp        Kind = "BoolOp"
	BinOp         Kind = "BinOp"
	UnaryOp       Kind = "UnaryOp"
	Compare       Kind = "Compare"
	IfExp         Kind = "IfExp"
	NamedExpr     Kind = "NamedExpr"
	Await         Kind = "Await"
	Lambda        Kind = "Lambda"
	Attribute     Kind = "Attribute"
	Subscript     Kind = "Subscript"
	Slice         Kind = "Slice"
	Call          Kind = "Call"
	Keyword       Kind = "Keyword"
	Starred       Kind = "Starred"
	DoubleStarred Kind = "DoubleStarred"
	Tuple         Kind = "Tuple"
	List          Kind = "List"
	Set           Kind = "Set"
	Dict          Kind = "Dict"
	Pair          Kind = "Pair"
	ListComp      Kind = "ListComp"
	SetComp       Kind = "SetComp"
	DictComp      Kind = "DictComp"
	GeneratorExp  Kind = "GeneratorExp"
	Comprehension Kind = "Comprehension"
	Yield         Kind = "Yield"
	YieldFrom     Kind = "YieldFrom"
)

// Auxiliary kinds.
const (
	Param   Kind = "Param"
	Alias   Kind = "Alias"
	Pattern Kind = "Pattern"
)

// Field names an ordered group of children.
type Field string

const (
	FieldBody       Field = "body"
	FieldOrElse     Field = "orelse"
	FieldFinally    Field = "finalbody"
	FieldHandlers   Field = "handlers"
	FieldDecorators Field = "decorators"
	FieldTypeParams Field = "type_params"
	FieldParams     Field = "params"
	FieldReturns    Field = "returns"
	FieldBases      Field = "bases"
	FieldTargets    Field = "targets"
	FieldTarget     Field = "target"
	FieldValue      Field = "value"
	FieldValues     Field = "values"
	FieldAnnotation Field = "annotation"
	FieldDefault    Field = "default"
	FieldTest       Field = "test"
	FieldMsg        Field = "msg"
	FieldCause      Field = "cause"
	FieldIter       Field = "iter"
	FieldIfs        Field = "ifs"
	FieldElt        Field = "elt"
	FieldElts       Field = "elts"
	FieldGenerators Field = "generators"
	FieldFunc       Field = "func"
	FieldArgs       Field = "args"
	FieldLeft       Field = "left"
	FieldRight      Field = "right"
	FieldOperand    Field = "operand"
	FieldIndex      Field = "index"
	FieldLower      Field = "lower"
	FieldUpper      Field = "upper"
	FieldStep       Field = "step"
	FieldKey        Field = "key"
	FieldNames      Field = "names"
	FieldType       Field = "type"
	FieldName       Field = "name"
	FieldItems      Field = "items"
	FieldContext    Field = "context"
	FieldSubject    Field = "subject"
	FieldCases      Field = "cases"
	FieldPatterns   Field = "patterns"
	FieldGuard      Field = "guard"
	FieldDest       Field = "dest"
	FieldIn         Field = "in"
)

// Node is one element of a syntax tree. Value carries the identifier,
// literal text, or definition name; Op carries an operator or a marker
// whose meaning depends on Kind (see the parse package). Children live in
// named fields kept in source order.
type Node struct {
	Kind  Kind
	Value string
	Op    string
	Ops   []string
	Async bool
	Line  int

	fields []field
}

type field struct {
	name  Field
	nodes []*Node
}

// New returns an empty node of the given kind starting at line.
func New(kind Kind, line int) *Node {
	return &Node{Kind: kind, Line: line}
}

// Add appends nodes to field f, creating the field on first use. Nil nodes
// are skipped so optional children can be passed unconditionally.
func (n *Node) Add(f Field, nodes ...*Node) *Node {
	idx := -1
	for i := range n.fields {
		if n.fields[i].name == f {
			idx = i
			break
		}
	}
	for _, c := range nodes {
		if c == nil {
			continue
		}
		if idx < 0 {
			n.fields = append(n.fields, field{name: f})
			idx = len(n.fields) - 1
		}
		n.fields[idx].nodes = append(n.fields[idx].nodes, c)
	}
	return n
}

// Get returns the children stored under f.
func (n *Node) Get(f Field) []*Node {
	for i := range n.fields {
		if n.fields[i].name == f {
			return n.fields[i].nodes
		}
	}
	return nil
}

// First returns the first child stored under f, or nil.
func (n *Node) First(f Field) *Node {
	if nodes := n.Get(f); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// Children returns every direct child in field order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, f := range n.fields {
		out = append(out, f.nodes...)
	}
	return out
}

// Equal reports whether a and b are structurally identical, ignoring line
// numbers.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Value != b.Value || a.Op != b.Op || a.Async != b.Async {
		return false
	}
	if strings.Join(a.Ops, " ") != strings.Join(b.Ops, " ") {
		return false
	}
	if len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		fa, fb := a.fields[i], b.fields[i]
		if fa.name != fb.name || len(fa.nodes) != len(fb.nodes) {
			return false
		}
		for j := range fa.nodes {
			if !Equal(fa.nodes[j], fb.nodes[j]) {
				return false
			}
		}
	}
	return true
}

// Dump returns an indented S-expression of the tree, without line numbers.
// It is meant for test failure output.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *Node, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s(%s", pad, n.Kind)
	if n.Async {
		b.WriteString(" async")
	}
	if n.Value != "" {
		fmt.Fprintf(b, " %q", n.Value)
	}
	if n.Op != "" {
		fmt.Fprintf(b, " op=%q", n.Op)
	}
	if len(n.Ops) > 0 {
		fmt.Fprintf(b, " ops=%q", n.Ops)
	}
	for _, f := range n.fields {
		fmt.Fprintf(b, "\n%s  %s:", pad, f.name)
		for _, c := range f.nodes {
			b.WriteString("\n")
			dump(b, c, depth+2)
		}
	}
	b.WriteString(")")
}

// UnsupportedError reports a construct that grepy has no rule for, either
// while converting a parse tree or while rendering a syntax tree.
type UnsupportedError struct {
	Kind string
	Line int
}

func (e *UnsupportedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unsupported construct %s at line %d", e.Kind, e.Line)
	}
	return fmt.Sprintf("unsupported construct %s", e.Kind)
}

package unparse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/grepy/internal/lang"
	"github.com/phobologic/grepy/internal/parse"
	"github.com/phobologic/grepy/internal/syntax"
)

func parseSource(t *testing.T, src string) *syntax.Node {
	t.Helper()
	p := lang.Languages[lang.Python].NewParser()
	defer p.Close()
	root, err := parse.Source(context.Background(), p, []byte(src))
	require.NoError(t, err, "parsing %q", src)
	return root
}

func name(s string) *syntax.Node {
	n := syntax.New(syntax.Name, 1)
	n.Value = s
	return n
}

func binop(op string, l, r *syntax.Node) *syntax.Node {
	n := syntax.New(syntax.BinOp, 1).Add(syntax.FieldLeft, l).Add(syntax.FieldRight, r)
	n.Op = op
	return n
}

func TestRenderBuiltTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node *syntax.Node
		want string
	}{
		{"grouping kept", binop("*", name("a"), binop("+", name("b"), name("c"))), "a * (b + c)"},
		{"grouping dropped", binop("+", binop("*", name("a"), name("b")), name("c")), "a * b + c"},
		{"right operand of minus", binop("-", name("a"), binop("-", name("b"), name("c"))), "a - (b - c)"},
		{"left operand of minus", binop("-", binop("-", name("a"), name("b")), name("c")), "a - b - c"},
		{"power is right associative", binop("**", name("a"), binop("**", name("b"), name("c"))), "a ** b ** c"},
		{"power left operand", binop("**", binop("**", name("a"), name("b")), name("c")), "(a ** b) ** c"},
		{"empty tuple", syntax.New(syntax.Tuple, 1), "()"},
		{"single tuple", syntax.New(syntax.Tuple, 1).Add(syntax.FieldElts, name("x")), "x,"},
		{"await left of power", binop("**", syntax.New(syntax.Await, 1).Add(syntax.FieldValue, name("a")), name("b")), "(await a) ** b"},
		{"bare yield", syntax.New(syntax.Yield, 1), "yield"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Render(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"a * (b + c)", "a * (b + c)"},
		{"(a * b) + c", "a * b + c"},
		{"(a ** b) ** c", "(a ** b) ** c"},
		{"-(a + b)", "-(a + b)"},
		{"not (a and b)", "not (a and b)"},
		{"(not a) and b", "not a and b"},
		{"a or (b and c)", "a or b and c"},
		{"(a or b) and c", "(a or b) and c"},
		{"(a < b) < c", "(a < b) < c"},
		{"a not in (b)", "a not in b"},
		{"(lambda: 1)()", "(lambda: 1)()"},
		{"f((a, b))", "f((a, b))"},
		{"f(  x ,y=2, *args, **kw )", "f(x, y=2, *args, **kw)"},
		{"a if (b if c else d) else e", "a if (b if c else d) else e"},
		{"(x for x in y)", "(x for x in y)"},
		{"sum((x for x in y))", "sum(x for x in y)"},
		{"[x*2 for x in range(10) if x]", "[x * 2 for x in range(10) if x]"},
		{"{k: v for k, v in items}", "{k: v for k, v in items}"},
		{"{1, 2}", "{1, 2}"},
		{"{'a': 1, **rest}", "{'a': 1, **rest}"},
		{"a[1:2, ::3]", "a[1:2, ::3]"},
		{"obj . attr . call ( )", "obj.attr.call()"},
		{"(a, b)", "a, b"},
		{"x = (1, 2)", "x = 1, 2"},
		{"x = y = (z)", "x = y = z"},
		{"x += (1)", "x += 1"},
		{"x = (yield)", "x = yield"},
		{"return (yield)", "return (yield)"},
		{"return (yield from g())", "return (yield from g())"},
		{"x = (*a, b)", "x = (*a, b)"},
		{"with (a if b else c) as f: pass", "with (a if b else c) as f:\n    pass"},
		{"'a' 'b'", "'a' 'b'"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got, err := Render(parseSource(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderStatements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "function",
			src: `@dec(1)
async def f(a, b: int = 2, *args, c, **kw) -> str:
    """doc"""  # trailing comment

    if a:
        return (a)
    elif b:
        pass
    else:
        raise ValueError("x") from None
`,
			want: `@dec(1)
async def f(a, b: int = 2, *args, c, **kw) -> str:
    """doc"""
    if a:
        return a
    elif b:
        pass
    else:
        raise ValueError("x") from None`,
		},
		{
			name: "class",
			src: `class A(B, metaclass=M):
    x: int = 0
    def m(self): return self.x
`,
			want: `class A(B, metaclass=M):
    x: int = 0
    def m(self):
        return self.x`,
		},
		{
			name: "loops",
			src: `for i, j in pairs:
    continue
else:
    pass
while not done:
    break
`,
			want: `for i, j in pairs:
    continue
else:
    pass
while not done:
    break`,
		},
		{
			name: "imports",
			src: `import os, sys as system
from ..pkg import (a,
    b as c)
from . import d
`,
			want: `import os, sys as system
from ..pkg import a, b as c
from . import d`,
		},
		{
			name: "with",
			src: `with open(p) as f, lock:
    data = f.read()
`,
			want: `with open(p) as f, lock:
    data = f.read()`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Render(parseSource(t, tt.src))
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("render mismatch:\n%s", unifiedDiff(tt.want, got))
			}
		})
	}
}

// roundTripSources are whole modules that must survive render and reparse
// unchanged.
var roundTripSources = []string{
	`def hello():
    print("hello")
    x = 1
    print("goodbye")
`,
	`class Outer:
    class Inner:
        def method(self, *, key=None, **rest):
            return [k for k in rest if k != key]
`,
	`async def fetch(session, url):
    async with session.get(url) as resp:
        async for chunk in resp.content:
            yield chunk
    await asyncio.sleep(0)
`,
	`def f(a, /, b, *, c):
    global counter
    counter += a ** -b
    del a, b
    assert c, "c required"
    lam = lambda x, y=2: (x, y)
    return lam(*[1], **{"y": 3})
`,
	`try:
    risky()
except (KeyError, ValueError) as exc:
    log(exc)
except Exception:
    raise
else:
    ok()
finally:
    cleanup()
`,
	`if (n := len(items)) > 10:
    print(f"{n} items")
x = a if b else c if d else e
y = not a == b
z = (yield) if False else None
`,
	`match command:
    case [x, y, *rest]:
        pass
    case {"key": value} if value > 0:
        pass
    case _:
        pass
`,
	`def f():
    return (yield from g())
`,
	`def f():
    x = yield
    y = yield from g()
    x += yield
    return (yield)
`,
	`async def f():
    x = (await a) ** b
    return await a ** b
`,
	`with (a if b else c) as f:
    pass
with (lambda: ctx)() as g:
    pass
x = (*gen, y)
`,
	`type X = int
type Pair = tuple[int, int]
type(mock).sig = checksig
type(obj)[0] = v
`,
	`def legacy(f, code, g, l):
    print >>f, x,
    exec code in g, l
`,
	`try:
    pass
except* ValueError as eg:
    pass
except* (TypeError, KeyError):
    pass
`,
	`@dataclass
@register(kind="point")
class A:
    x: int = 0
`,
	`x = data[1:2]
y = data[::2]
z = data[i, j]
w = (1).real
s = {*a, *b}
`,
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for i, src := range roundTripSources {
		src := src
		t.Run(strings.SplitN(src, "\n", 2)[0], func(t *testing.T) {
			t.Parallel()
			orig := parseSource(t, src)

			first, err := Render(orig)
			require.NoError(t, err, "source %d", i)
			reparsed := parseSource(t, first)
			if !syntax.Equal(orig, reparsed) {
				t.Fatalf("rendered source parses to a different tree:\n%s",
					unifiedDiff(syntax.Dump(orig), syntax.Dump(reparsed)))
			}

			second, err := Render(reparsed)
			require.NoError(t, err)
			if first != second {
				t.Errorf("render is not idempotent:\n%s", unifiedDiff(first, second))
			}
		})
	}
}

func TestRenderUnits(t *testing.T) {
	t.Parallel()

	root := parseSource(t, "class A:\n    def f(self):\n        return 1\n")
	cls := root.First(syntax.FieldBody)
	require.Equal(t, syntax.ClassDef, cls.Kind)
	fn := cls.First(syntax.FieldBody)
	require.Equal(t, syntax.FunctionDef, fn.Kind)

	got, err := Render(fn)
	require.NoError(t, err)
	assert.Equal(t, "def f(self):\n    return 1", got)
}

func TestRenderUnsupported(t *testing.T) {
	t.Parallel()

	mod := syntax.New(syntax.Module, 1).Add(syntax.FieldBody,
		syntax.New(syntax.Pass, 1),
		syntax.New(syntax.Kind("Bogus"), 7),
	)
	_, err := Render(mod)
	var ue *syntax.UnsupportedError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.Equal(t, "Bogus", ue.Kind)
	assert.Equal(t, 7, ue.Line)

	_, err = Render(binop("<=>", name("a"), name("b")))
	require.True(t, errors.As(err, &ue), "got %v", err)

	_, err = Render(nil)
	assert.Error(t, err)
}

func unifiedDiff(want, got string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

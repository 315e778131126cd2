package toon

import (
	"errors"
	"strings"
	"testing"

	"github.com/phobologic/grepy/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
			{"signature no special", "run(self) -> None", "run(self) -> None"},
			{"rendered unit", "def f():\n    pass", `"def f():\n    pass"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	doc := Document{
		Pattern: "hello.*goodbye",
		Units:   []model.UnitKind{model.Function, model.Class},
		Results: []model.FileResult{
			{
				Path: "src/main.py",
				Hits: []model.Hit{
					{Unit: model.Function, Label: "Function", Name: "hello", Line: 3, Text: "def hello():\n    goodbye()"},
					{Unit: model.Class, Label: "Class", Name: "Greeter", Line: 10, Text: "class Greeter:\n    pass"},
				},
			},
			{Path: "src/empty.py", Hits: []model.Hit{}},
			{Path: "src/bad.py", Err: errors.New("syntax error at line 2, column 1")},
		},
		ErrorKind: func(error) string { return "syntax" },
	}

	got := Encode(doc)

	// Verify structure
	lines := strings.Split(got, "\n")
	want := []string{
		`pattern: hello.*goodbye`,
		`units[2]: function,class`,
		`files: 3`,
		`hits[2]{file,unit,name,line,text}:`,
		`  src/main.py,function,hello,3,"def hello():\n    goodbye()"`,
		`  src/main.py,class,Greeter,10,"class Greeter:\n    pass"`,
		`errors[1]{file,kind,message}:`,
		`  src/bad.py,syntax,"syntax error at line 2, column 1"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(Document{Pattern: "x"})
	if !strings.Contains(got, "units[0]: ") {
		t.Errorf("expected empty units, got:\n%s", got)
	}
	if !strings.Contains(got, "hits[0]{file,unit,name,line,text}:") {
		t.Errorf("expected empty hits section, got:\n%s", got)
	}
	if strings.Contains(got, "errors[") {
		t.Errorf("errors section should be omitted when nothing failed, got:\n%s", got)
	}
}

func TestEncodeDefaultErrorKind(t *testing.T) {
	t.Parallel()

	got := Encode(Document{
		Pattern: "x",
		Results: []model.FileResult{{Path: "a.py", Err: errors.New("boom")}},
	})
	if !strings.Contains(got, "  a.py,error,boom") {
		t.Errorf("got:\n%s", got)
	}
}

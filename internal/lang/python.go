package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

// Python is the name grepy registers the Python grammar under.
const Python = "python"

func init() {
	Languages[Python] = &Language{
		Name:         Python,
		Extensions:   []string{".py", ".pyw"},
		Interpreters: []string{"python", "pypy"},
		lang:         python.GetLanguage(),
	}
}

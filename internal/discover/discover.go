// Package discover resolves command-line paths into the Python files to
// search.
package discover

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/grepy/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to the walked directory
	Language string
}

// Options filters the files found under directory arguments. Explicit file
// arguments are never filtered.
type Options struct {
	// Includes, when non-empty, keeps only files whose slash-separated
	// relative path matches one of the doublestar patterns.
	Includes []string
	// Excludes drops files matching any of the patterns.
	Excludes []string
	// SkipTests drops test modules and anything under a tests directory.
	SkipTests bool
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".nox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"site-packages": {},
	"egg-info":      {},
}

// Expand turns PATH arguments into a file list. Files are kept as given, in
// argument order; directories are replaced by the Python files beneath them
// in sorted order. Duplicates keep their first position. A path that does
// not exist is kept so the search can report it against that file.
func Expand(paths []string, opts Options) ([]string, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(paths))
	var out []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			add(p)
			continue
		}
		entries, err := Files(p, opts)
		if err != nil {
			return nil, fmt.Errorf("discovering files in %s: %w", p, err)
		}
		for _, e := range entries {
			add(filepath.Join(p, e.Path))
		}
	}
	return out, nil
}

func validate(opts Options) error {
	for _, group := range [][]string{opts.Includes, opts.Excludes} {
		for _, pattern := range group {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid glob %q", pattern)
			}
		}
	}
	return nil
}

// Files discovers Python files under root. A file is Python if its
// extension says so or, lacking an extension, its first line names a
// Python interpreter.
func Files(root string, opts Options) ([]FileEntry, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".egg-info") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		langName := detect(path, name)
		if langName != lang.Python {
			return nil
		}

		if !selected(filepath.ToSlash(rel), opts) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// detect returns the language of a file by extension, falling back to its
// shebang line for extensionless scripts.
func detect(path, name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return lang.ForExtension(ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return lang.ForShebang(sc.Text())
	}
	return ""
}

func selected(rel string, opts Options) bool {
	if opts.SkipTests && IsTestFile(rel) {
		return false
	}
	for _, pattern := range opts.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(opts.Includes) == 0 {
		return true
	}
	for _, pattern := range opts.Includes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// IsTestFile reports whether the slash-separated path looks like a Python
// test module: anything under a tests/ or test/ directory, test_*.py, or
// *_test.py.
func IsTestFile(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir == "tests" || dir == "test" {
			return true
		}
	}
	base := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(rel))
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test")
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/grepy/internal/model"
	"github.com/phobologic/grepy/internal/parse"
)

const nested = `class Outer:
    def method(self):
        def helper():
            return target
        return helper
`

const helloGoodbye = `def hello():
    print("hello")
    x = 1
    print("goodbye")
`

const siblings = `def hello():
    print("hello")

def goodbye():
    print("goodbye")
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func opts() Options {
	return Options{Logger: zerolog.Nop()}
}

var both = []model.UnitKind{model.Function, model.Class}

func TestSearchNestedUnits(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "nested.py", nested)
	results, err := Search(context.Background(), "target", []string{path}, both, opts())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	hits := results[0].Hits
	require.Len(t, hits, 3)

	// Function visitor runs first, in pre-order, then the class visitor.
	assert.Equal(t, model.Function, hits[0].Unit)
	assert.Equal(t, "Outer.method", hits[0].Name)
	assert.Equal(t, 2, hits[0].Line)
	assert.Equal(t, "Function", hits[0].Label)

	assert.Equal(t, "Outer.method.helper", hits[1].Name)
	assert.Equal(t, "def helper():\n    return target", hits[1].Text)

	assert.Equal(t, model.Class, hits[2].Unit)
	assert.Equal(t, "Outer", hits[2].Name)
	assert.Equal(t, "Class", hits[2].Label)
	assert.Equal(t, 1, hits[2].Line)
}

func TestSearchKindOrderFollowsRequest(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "nested.py", nested)
	kinds := []model.UnitKind{model.Class, model.Function}
	results, err := Search(context.Background(), "target", []string{path}, kinds, opts())
	require.NoError(t, err)
	require.Len(t, results[0].Hits, 3)
	assert.Equal(t, model.Class, results[0].Hits[0].Unit)
	assert.Equal(t, model.Function, results[0].Hits[2].Unit)
}

func TestSearchMultiline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	one := writeFile(t, dir, "one.py", helloGoodbye)
	two := writeFile(t, dir, "two.py", siblings)

	results, err := Search(context.Background(), "hello.*goodbye", []string{one, two},
		[]model.UnitKind{model.Function}, opts())
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, results[0].Hits, 1)
	assert.Equal(t, "hello", results[0].Hits[0].Name)
	assert.Contains(t, results[0].Hits[0].Text, `print("goodbye")`)

	assert.Empty(t, results[1].Hits, "a match split across sibling functions is not a hit")
	assert.NoError(t, results[1].Err)
}

func TestSearchEmptyKinds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.py", helloGoodbye)
	bad := writeFile(t, dir, "bad.py", "def (:\n")

	results, err := Search(context.Background(), "hello", []string{good, bad}, nil, opts())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.Hits)
		assert.NoError(t, r.Err)
	}
}

func TestSearchBadFileAmongGood(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.py", helloGoodbye),
		writeFile(t, dir, "b.py", "def broken(:\n    pass\n"),
		writeFile(t, dir, "c.py", nested),
		filepath.Join(dir, "missing.py"),
	}

	results, err := Search(context.Background(), ".", files, both, opts())
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Len(t, results[0].Hits, 1)
	assert.NoError(t, results[0].Err)

	var se *parse.SyntaxError
	require.True(t, errors.As(results[1].Err, &se), "got %v", results[1].Err)
	assert.Equal(t, files[1], se.File)
	assert.Equal(t, KindSyntax, ErrorKind(results[1].Err))
	assert.Empty(t, results[1].Hits)

	assert.Len(t, results[2].Hits, 3)

	assert.True(t, errors.Is(results[3].Err, os.ErrNotExist))
	assert.Equal(t, KindIO, ErrorKind(results[3].Err))
}

func TestSearchMatchTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "slow.py", "def f():\n    return 'Do you think you found the problem string!'\n"),
		writeFile(t, dir, "none.py", "x = 1\n"),
	}

	o := opts()
	o.MatchTimeout = 50 * time.Millisecond
	results, err := Search(context.Background(), `(.+)*\?`, files, both, o)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.ErrorIs(t, results[0].Err, ErrMatchTimeout)
	assert.Equal(t, KindTimeout, ErrorKind(results[0].Err))
	assert.NoError(t, results[1].Err)
}

func TestSearchPreservesInputOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var files []string
	for i := range 40 {
		src := fmt.Sprintf("def f%d():\n    return %d\n", i, i)
		files = append(files, writeFile(t, dir, fmt.Sprintf("m%02d.py", i), src))
	}

	o := opts()
	o.Workers = 4
	var mu sync.Mutex
	var done int
	o.OnFile = func(string) {
		mu.Lock()
		done++
		mu.Unlock()
	}

	results, err := Search(context.Background(), "return", files, []model.UnitKind{model.Function}, o)
	require.NoError(t, err)
	require.Len(t, results, len(files))
	assert.Equal(t, len(files), done)
	for i, r := range results {
		assert.Equal(t, files[i], r.Path)
		require.Len(t, r.Hits, 1)
		assert.Equal(t, fmt.Sprintf("f%d", i), r.Hits[0].Name)
	}
}

func TestSearchInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := Search(context.Background(), "(unclosed", []string{"does-not-exist.py"}, both, opts())
	var ipe *InvalidPatternError
	require.True(t, errors.As(err, &ipe), "got %v", err)
	assert.Equal(t, "(unclosed", ipe.Pattern)
}

func TestSearchUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Search(context.Background(), "x", nil, []model.UnitKind{"module"}, opts())
	assert.Error(t, err)
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "a.py", helloGoodbye)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, "hello", []string{path}, both, opts())
	assert.ErrorIs(t, err, context.Canceled)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]model.Hit
	lookups int
}

func (c *memCache) Lookup(path string) ([]model.Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	hits, ok := c.entries[path]
	return hits, ok
}

func (c *memCache) Store(path string, hits []model.Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = hits
}

func TestSearchUsesCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.py", helloGoodbye)
	bad := writeFile(t, dir, "bad.py", "class :\n")

	cache := &memCache{entries: map[string][]model.Hit{}}
	o := opts()
	o.Cache = cache

	first, err := Search(context.Background(), "hello", []string{good, bad}, both, o)
	require.NoError(t, err)
	require.Len(t, first[0].Hits, 1)
	require.Error(t, first[1].Err)

	assert.Contains(t, cache.entries, good)
	assert.NotContains(t, cache.entries, bad, "failed files are not cached")

	// A cached entry is returned as-is, without reading the file.
	cache.entries[good] = []model.Hit{{Unit: model.Function, Name: "cached"}}
	second, err := Search(context.Background(), "hello", []string{good}, both, o)
	require.NoError(t, err)
	require.Len(t, second[0].Hits, 1)
	assert.Equal(t, "cached", second[0].Hits[0].Name)
}

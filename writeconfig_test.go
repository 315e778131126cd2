package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/grepy/internal/config"
)

// TestWriteConfigFormats verifies that the extension picks the encoding and
// that both encodings load back as the defaults.
func TestWriteConfigFormats(t *testing.T) {
	t.Parallel()
	for _, name := range []string{".grepy.yaml", ".grepy.toml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)

			var stdout, stderr bytes.Buffer
			if err := writeConfig(path, false, &stdout, &stderr); err != nil {
				t.Fatalf("writeConfig: %v", err)
			}
			if stdout.Len() != 0 {
				t.Errorf("nothing should go to stdout, got %q", stdout.String())
			}
			if !strings.Contains(stderr.String(), path) {
				t.Errorf("stderr should name the written file, got %q", stderr.String())
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(string(data), "# grepy configuration.") {
				t.Errorf("missing header:\n%s", data)
			}
			cfg, err := config.Load(path)
			if err != nil {
				t.Fatalf("Load: %v\n%s", err, data)
			}
			if cfg.Output.Format != config.FormatText || len(cfg.Units) != 2 {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

// TestWriteConfigRefusesOverwrite verifies that an existing file is kept
// unless force is set.
func TestWriteConfigRefusesOverwrite(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, t.TempDir(), ".grepy.yaml", "units: [class]\n")

	var stdout, stderr bytes.Buffer
	err := writeConfig(path, false, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "units: [class]\n" {
		t.Errorf("file was modified:\n%s", data)
	}

	if err := writeConfig(path, true, &stdout, &stderr); err != nil {
		t.Fatalf("writeConfig with force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "units:") || strings.Contains(string(data), "[class]") {
		t.Errorf("force should overwrite, got:\n%s", data)
	}
}

// TestWriteConfigFlag exercises --write-config through run.
func TestWriteConfigFlag(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "custom.toml")

	code, _, stderr, err := runGrepy(t, "--write-config="+path)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	if code != exitMatch {
		t.Errorf("exit code = %d, want 0", code)
	}
	if _, err := config.Load(path); err != nil {
		t.Errorf("written config does not load: %v", err)
	}

	_, out, _, err := runGrepy(t, "--write-config=-")
	if err != nil {
		t.Fatalf("run --write-config=-: %v", err)
	}
	if !strings.Contains(out, "units:") || !strings.Contains(out, "match_timeout: 5s") {
		t.Errorf("expected default YAML on stdout, got:\n%s", out)
	}

	// A pattern after the flag is a mistake, not a search.
	code, _, _, err = runGrepy(t, "--write-config="+path, "--force", "def")
	if err == nil || code != exitError {
		t.Errorf("expected an argument error, got code %d err %v", code, err)
	}
}

// TestSearchWordsAreNotCommands verifies that words such as "init" and
// "version" are searched for like any other pattern.
func TestSearchWordsAreNotCommands(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := writeTestFile(t, dir, "a.py", "def init():\n    return version()\n")

	for _, word := range []string{"init", "version"} {
		code, out, stderr, err := runGrepy(t, "-f", word, file)
		if err != nil {
			t.Fatalf("search %q: %v\nstderr: %s", word, err, stderr)
		}
		if code != exitMatch || !strings.Contains(out, "def init():") {
			t.Errorf("search %q: code %d, output:\n%s", word, code, out)
		}
	}

	// A bare word followed by a new file name is a search of a missing
	// file, and nothing is created.
	target := filepath.Join(dir, "new.py")
	code, _, stderr, err := runGrepy(t, "init", target)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != exitError || !strings.Contains(stderr, ": io: ") {
		t.Errorf("code = %d, stderr:\n%s", code, stderr)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("%s should not exist, stat err = %v", target, err)
	}
}

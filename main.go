// grepy searches the functions and classes of Python files with a regular
// expression matched against their normalized source.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phobologic/grepy/internal/cache"
	"github.com/phobologic/grepy/internal/config"
	"github.com/phobologic/grepy/internal/discover"
	"github.com/phobologic/grepy/internal/model"
	"github.com/phobologic/grepy/internal/report"
	"github.com/phobologic/grepy/internal/search"
)

var version = "dev"

// Exit statuses, grep style.
const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grepy: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := exitMatch
	root := newRootCmd(stdout, stderr, &code)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return exitError, err
	}
	return code, nil
}

type searchCmd struct {
	stdout, stderr io.Writer
	code           *int

	function     bool
	class        bool
	configPath   string
	format       string
	color        bool
	theme        string
	workers      int
	maxFileSize  int64
	matchTimeout time.Duration
	cachePath    string
	progress     bool
	logLevel     string
	includes     []string
	excludes     []string
	skipTests    bool
	writeConfig  string
	force        bool
}

func newRootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	s := &searchCmd{stdout: stdout, stderr: stderr, code: code}

	cmd := &cobra.Command{
		Use:   "grepy [flags] PATTERN [PATH...]",
		Short: "Search Python functions and classes by regular expression",
		Long: `grepy parses Python files and matches PATTERN against the source of each
function and class, rendered in a normalized form: comments, blank lines and
redundant parentheses are gone, and bodies use four-space indentation. The
pattern uses Python regular expression syntax and "." matches newlines, so
one pattern can span a whole unit.

PATH may be a file or a directory. Directories are searched for Python files,
honoring .gitignore. With no PATH the current directory is searched.

Exit status is 0 when something matched, 1 when nothing did, and 2 when any
file could not be searched or the run failed. As with grep, a file that could
not be searched makes the status 2 even when other files matched; every hit is
still reported.

--write-config writes grepy's defaults to a config file and exits without
searching. The path is .grepy.yaml unless given as --write-config=PATH; a path
ending in .toml is written as TOML, and - prints YAML to stdout.

Example usage:
  grepy -f 'open\(.*close\(\)' src/      # functions that open then close
  grepy -c 'class \w+\(Exception\)' .    # exception classes
  grepy --format toon 'lambda' app.py    # TOON output
  grepy --write-config=.grepy.toml       # start a TOML config`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("write-config") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          s.run,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("grepy {{.Version}}\n")

	f := cmd.Flags()
	f.BoolVarP(&s.function, "function", "f", false, "treat functions as search units")
	f.BoolVarP(&s.class, "class", "c", false, "treat classes as search units")
	f.StringVar(&s.configPath, "config", "", "config file (default is ./.grepy.yaml, .grepy.yml or .grepy.toml)")
	f.StringVar(&s.format, "format", config.FormatText, "output format: text, toon or json")
	f.BoolVar(&s.color, "color", false, "highlight matched units in text output")
	f.StringVar(&s.theme, "theme", "monokai", "highlighting theme")
	f.IntVar(&s.workers, "workers", 0, "files searched at once (0 = number of CPUs)")
	f.Int64Var(&s.maxFileSize, "max-file-size", 1_000_000, "skip files larger than this many bytes (0 = no limit)")
	f.DurationVar(&s.matchTimeout, "match-timeout", 5*time.Second, "give up on a file when one match runs longer than this (0 = no limit)")
	f.StringVar(&s.cachePath, "cache", "", "result cache file")
	f.BoolVar(&s.progress, "progress", false, "show a progress bar on stderr")
	f.StringVar(&s.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.StringArrayVar(&s.includes, "include", nil, "only search directory files matching this glob (repeatable)")
	f.StringArrayVar(&s.excludes, "exclude", nil, "skip directory files matching this glob (repeatable)")
	f.BoolVar(&s.skipTests, "skip-tests", false, "skip test modules found in directories")

	f.StringVar(&s.writeConfig, "write-config", "", "write a default config file and exit (see above)")
	f.Lookup("write-config").NoOptDefVal = config.FileNames[0]
	f.BoolVar(&s.force, "force", false, "let --write-config replace an existing file")
	return cmd
}

func (s *searchCmd) run(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("write-config") {
		return writeConfig(s.writeConfig, s.force, s.stdout, s.stderr)
	}

	cfg, err := s.loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(s.stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	pattern, paths := args[0], args[1:]
	if len(paths) == 0 {
		paths = []string{"."}
	}
	kinds := s.unitKinds(cfg)

	files, err := discover.Expand(paths, discover.Options{
		Includes:  cfg.Search.Includes,
		Excludes:  cfg.Search.Excludes,
		SkipTests: cfg.Search.SkipTests,
	})
	if err != nil {
		return err
	}
	files = filterBySize(files, cfg.Search.MaxFileSize, log)
	log.Debug().Int("files", len(files)).Strs("units", unitNames(kinds)).Msg("starting search")

	timeout, err := cfg.MatchTimeout()
	if err != nil {
		return err
	}
	opts := search.Options{Workers: cfg.Search.Workers, MatchTimeout: timeout, Logger: log}
	if cfg.Cache.Path != "" {
		c, err := cache.Open(cfg.Cache.Path, log)
		if err != nil {
			return err
		}
		defer c.Close()
		if n, err := c.Len(); err == nil {
			log.Debug().Str("path", cfg.Cache.Path).Int("entries", n).Msg("opened result cache")
		}
		opts.Cache = c.Scoped(pattern, kinds)
	}
	if s.progress && len(files) > 0 {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(s.stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("searching"),
			progressbar.OptionClearOnFinish(),
		)
		opts.OnFile = func(string) { _ = bar.Add(1) }
	}

	results, err := search.Search(cmd.Context(), pattern, files, kinds, opts)
	if err != nil {
		return err
	}

	if err := report.Write(s.stdout, results, report.Options{
		Format:  cfg.Output.Format,
		Pattern: pattern,
		Units:   kinds,
		Color:   cfg.Output.Color,
		Theme:   cfg.Output.Theme,
	}); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := report.WriteErrors(s.stderr, results); err != nil {
		return err
	}

	*s.code = exitCode(model.Summarize(results))
	return nil
}

// loadConfig reads the config file and lays explicitly set flags over it.
func (s *searchCmd) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.configPath != "" {
		cfg, err = config.Load(s.configPath)
	} else {
		var dir string
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg, _, err = config.LoadFromDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format = s.format
	}
	if f.Changed("color") {
		cfg.Output.Color = s.color
	}
	if f.Changed("theme") {
		cfg.Output.Theme = s.theme
	}
	if f.Changed("workers") {
		cfg.Search.Workers = s.workers
	}
	if f.Changed("max-file-size") {
		cfg.Search.MaxFileSize = s.maxFileSize
	}
	if f.Changed("match-timeout") {
		cfg.Search.MatchTimeout = s.matchTimeout.String()
	}
	if f.Changed("cache") {
		cfg.Cache.Path = s.cachePath
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = s.logLevel
	}
	if f.Changed("include") {
		cfg.Search.Includes = s.includes
	}
	if f.Changed("exclude") {
		cfg.Search.Excludes = s.excludes
	}
	if f.Changed("skip-tests") {
		cfg.Search.SkipTests = s.skipTests
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// unitKinds returns the kinds named by -f and -c, functions first, or the
// configured units when neither flag is given.
func (s *searchCmd) unitKinds(cfg *config.Config) []model.UnitKind {
	if !s.function && !s.class {
		return cfg.UnitKinds()
	}
	var kinds []model.UnitKind
	if s.function {
		kinds = append(kinds, model.Function)
	}
	if s.class {
		kinds = append(kinds, model.Class)
	}
	return kinds
}

func unitNames(kinds []model.UnitKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}

func exitCode(s model.Summary) int {
	switch {
	case s.Failed > 0:
		return exitError
	case s.Hits == 0:
		return exitNoMatch
	}
	return exitMatch
}

// filterBySize drops files larger than maxSize bytes. Files that cannot be
// stat'ed are kept so the search reports them. A maxSize of zero disables
// the limit.
func filterBySize(files []string, maxSize int64, log zerolog.Logger) []string {
	if maxSize <= 0 {
		return files
	}
	var kept []string
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > maxSize {
			log.Warn().Str("file", f).Int64("size", fi.Size()).Int64("limit", maxSize).Msg("skipped, exceeds max file size")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

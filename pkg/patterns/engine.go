package patterns

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/model"
)

type compiledRule struct {
	id string
	re *regexp2.Regexp
}

type compiledLibrary struct {
	sig LibrarySignature
	re  *regexp2.Regexp
}

type compiledFingerprint struct {
	fp Fingerprint
	re *regexp2.Regexp
}

// Engine evaluates the compiled catalog. It is safe for concurrent use.
//
// A match that exceeds the per-expression timeout ends that rule's pass;
// whatever was counted so far is kept and the timeout is logged.
type Engine struct {
	byCategory map[Category][]compiledRule
	frameworks []compiledFingerprint
	libraries  []compiledLibrary
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	timeout time.Duration
	logger  *slog.Logger
	rules   []Rule
}

// WithMatchTimeout bounds a single expression evaluation.
func WithMatchTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.timeout = d }
}

// WithLogger sets the logger for match timeouts.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithRules replaces the built-in rule table.
func WithRules(rules []Rule) Option {
	return func(c *engineConfig) { c.rules = rules }
}

// NewEngine compiles the catalog.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := engineConfig{
		timeout: duration.PatternMatchTimeout,
		rules:   Rules,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	e := &Engine{
		byCategory: make(map[Category][]compiledRule),
		logger:     cfg.logger,
	}
	for _, r := range cfg.rules {
		re, err := compile(r.Expr, r.IgnoreCase, cfg.timeout)
		if err != nil {
			return nil, fmt.Errorf("patterns: rule %s: %w", r.ID, err)
		}
		e.byCategory[r.Category] = append(e.byCategory[r.Category], compiledRule{id: r.ID, re: re})
	}
	for _, fp := range Frameworks {
		re, err := compile(fp.Expr, false, cfg.timeout)
		if err != nil {
			return nil, fmt.Errorf("patterns: framework %s: %w", fp.Name, err)
		}
		e.frameworks = append(e.frameworks, compiledFingerprint{fp: fp, re: re})
	}
	for _, lib := range Libraries {
		re, err := compile(lib.Expr, true, cfg.timeout)
		if err != nil {
			return nil, fmt.Errorf("patterns: library %s: %w", lib.Name, err)
		}
		e.libraries = append(e.libraries, compiledLibrary{sig: lib, re: re})
	}
	return e, nil
}

func compile(expr string, fold bool, timeout time.Duration) (*regexp2.Regexp, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if fold {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = timeout
	return re, nil
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the shared engine built from the built-in catalog.
func Default() *Engine {
	defaultOnce.Do(func() {
		e, err := NewEngine()
		if err != nil {
			panic(err)
		}
		defaultEngine = e
	})
	return defaultEngine
}

// Count returns the total number of non-overlapping matches of every rule
// in cat.
func (e *Engine) Count(cat Category, text string) int {
	total := 0
	for _, r := range e.byCategory[cat] {
		e.each(r, text, func(*regexp2.Match) bool {
			total++
			return true
		})
	}
	return total
}

// Matches returns the matched text of every rule in cat, in rule order.
func (e *Engine) Matches(cat Category, text string) []string {
	var out []string
	for _, r := range e.byCategory[cat] {
		e.each(r, text, func(m *regexp2.Match) bool {
			out = append(out, m.String())
			return true
		})
	}
	return out
}

// Submatches returns capture group n of every match in cat.
func (e *Engine) Submatches(cat Category, text string, n int) []string {
	var out []string
	for _, r := range e.byCategory[cat] {
		e.each(r, text, func(m *regexp2.Match) bool {
			if g := m.GroupByNumber(n); g != nil && len(g.Captures) > 0 {
				out = append(out, g.String())
			}
			return true
		})
	}
	return out
}

// Any reports whether some rule in cat matches.
func (e *Engine) Any(cat Category, text string) bool {
	found := false
	for _, r := range e.byCategory[cat] {
		e.each(r, text, func(*regexp2.Match) bool {
			found = true
			return false
		})
		if found {
			return true
		}
	}
	return false
}

// Frameworks returns the fingerprinted frameworks, matched against the
// lower-cased text.
func (e *Engine) Frameworks(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, f := range e.frameworks {
		ok, err := f.re.MatchString(lower)
		if err != nil {
			e.logTimeout("framework-"+strings.ToLower(f.fp.Name), err)
			continue
		}
		if ok {
			out = append(out, f.fp.Name)
		}
	}
	return out
}

// IsVirtualDOM reports whether name is a framework that escapes output by
// default.
func IsVirtualDOM(name string) bool {
	for _, f := range Frameworks {
		if f.Name == name {
			return f.VirtualDOM
		}
	}
	return false
}

// VulnerableLibraries extracts the first version string of each known
// library and returns those on the vulnerable list.
func (e *Engine) VulnerableLibraries(text string) []model.VulnerableLibrary {
	var out []model.VulnerableLibrary
	for _, lib := range e.libraries {
		m, err := lib.re.FindStringMatch(text)
		if err != nil {
			e.logTimeout("library-"+strings.ToLower(lib.sig.Name), err)
			continue
		}
		if m == nil {
			continue
		}
		version := m.GroupByNumber(1).String()
		for _, prefix := range lib.sig.VulnerablePrefixes {
			if strings.HasPrefix(version, prefix) {
				out = append(out, model.VulnerableLibrary{Library: lib.sig.Name, Version: version})
				break
			}
		}
	}
	return out
}

// each walks the matches of one rule until fn returns false.
func (e *Engine) each(r compiledRule, text string, fn func(*regexp2.Match) bool) {
	m, err := r.re.FindStringMatch(text)
	for m != nil && err == nil {
		if !fn(m) {
			return
		}
		m, err = r.re.FindNextMatch(m)
	}
	if err != nil {
		e.logTimeout(r.id, err)
	}
}

func (e *Engine) logTimeout(id string, err error) {
	e.logger.Warn("pattern evaluation aborted",
		slog.String("rule", id),
		slog.String("error", err.Error()))
}

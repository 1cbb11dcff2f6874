package engine

import (
	"context"
	"crypto/md5"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"erbgo/internal/common/errors"
	"erbgo/internal/common/logging"
	"erbgo/internal/erb"
)

// Engine compiles templates for one evaluator and renders them.
type Engine struct {
	evaluator erb.Evaluator
	config    *EngineConfig
	logger    logging.Logger

	programs  *gocache.Cache
	templates map[string]*Template
	mu        sync.RWMutex

	workers *semaphore.Weighted
}

// Template is a compiled template bound to the options it was compiled with.
type Template struct {
	ID         string
	Name       string
	CompiledAt time.Time

	program *erb.Program
	options Options
}

// Program returns the compiled program.
func (t *Template) Program() *erb.Program { return t.program }

// Options returns the options the template was compiled with, defaults
// filled in.
func (t *Template) Options() Options { return t.options }

// cacheClearer is implemented by evaluators that cache their own compiled
// programs.
type cacheClearer interface {
	ClearCache()
}

// NewEngine creates an engine around evaluator. A nil config uses
// DefaultEngineConfig.
func NewEngine(evaluator erb.Evaluator, config *EngineConfig) (*Engine, error) {
	if evaluator == nil {
		return nil, errors.ConfigError("engine requires an evaluator")
	}
	if config == nil {
		config = DefaultEngineConfig()
	}
	if config.MaxWorkers <= 0 {
		return nil, errors.ConfigError("max_workers must be positive")
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	engine := &Engine{
		evaluator: evaluator,
		config:    config,
		logger:    logger.WithFields(logging.String("dialect", evaluator.Dialect().Name())),
		templates: make(map[string]*Template),
		workers:   semaphore.NewWeighted(int64(config.MaxWorkers)),
	}
	if config.CacheTemplates {
		ttl := config.CacheTTL
		if ttl <= 0 {
			ttl = gocache.NoExpiration
		}
		engine.programs = gocache.New(ttl, 2*ttl)
	}
	return engine, nil
}

// Evaluator returns the evaluator templates run on.
func (e *Engine) Evaluator() erb.Evaluator { return e.evaluator }

// Compile compiles source. Compiled programs are cached by source and
// compile options when CacheTemplates is set.
func (e *Engine) Compile(source string, opts Options) (*Template, error) {
	opts = opts.withDefaults()

	if e.config.MaxTemplateSize > 0 && len(source) > e.config.MaxTemplateSize {
		return nil, errors.ValidationError(fmt.Sprintf("template size %d exceeds maximum %d", len(source), e.config.MaxTemplateSize))
	}

	key := e.programKey(source, opts)
	if e.programs != nil {
		if cached, found := e.programs.Get(key); found {
			return newTemplate(cached.(*erb.Program), opts), nil
		}
	}

	compiler, err := erb.NewCompiler(e.evaluator.Dialect(), opts.compilerOptions()...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	program, err := compiler.Compile(source)
	if err != nil {
		var unterminated *erb.UnterminatedTagError
		if stderrors.As(err, &unterminated) {
			return nil, errors.SyntaxError(fmt.Sprintf("%s: %v", opts.Filename, err), err).
				WithContext("line", unterminated.Line)
		}
		return nil, err
	}

	if e.programs != nil {
		e.programs.Set(key, program, gocache.DefaultExpiration)
	}

	tmpl := newTemplate(program, opts)
	e.logger.Debug("template compiled",
		logging.String("template_id", tmpl.ID),
		logging.String("filename", opts.Filename),
		logging.Int("lines", program.Lines()),
		logging.Bool("percent", program.Percent()),
		logging.Duration("duration", time.Since(start)),
	)
	return tmpl, nil
}

func newTemplate(program *erb.Program, opts Options) *Template {
	return &Template{
		ID:         uuid.NewString(),
		CompiledAt: time.Now(),
		program:    program,
		options:    opts,
	}
}

func (e *Engine) programKey(source string, opts Options) string {
	sum := md5.Sum([]byte(source))
	return fmt.Sprintf("%s|%x", opts.cacheKey(e.evaluator.Dialect().Name()), sum)
}

// Render runs tmpl against vars and returns the output.
func (e *Engine) Render(ctx context.Context, tmpl *Template, vars map[string]interface{}) (string, error) {
	if tmpl == nil {
		return "", errors.ValidationError("template is nil")
	}

	exec := &erb.Execution{
		Program:   tmpl.program.Source(),
		Vars:      vars,
		Filename:  tmpl.options.Filename,
		Isolation: tmpl.options.Isolation,
	}

	start := time.Now()
	var (
		result interface{}
		err    error
	)
	if exec.Isolation > erb.IsolationNone {
		result, err = e.runIsolated(ctx, exec)
	} else {
		result, err = e.evaluator.Execute(ctx, exec)
	}
	if err != nil {
		e.logger.WithContext(ctx).Error("template render failed", err,
			logging.String("template_id", tmpl.ID),
			logging.String("filename", exec.Filename),
			logging.Any("isolation", exec.Isolation),
		)
		return "", err
	}

	out := coerce(result)
	e.logger.Debug("template rendered",
		logging.String("template_id", tmpl.ID),
		logging.Int("output_size", len(out)),
		logging.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Run renders tmpl and writes the output to w.
func (e *Engine) Run(ctx context.Context, tmpl *Template, vars map[string]interface{}, w io.Writer) error {
	out, err := e.Render(ctx, tmpl, vars)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// coerce turns an evaluator result into output text.
func coerce(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Register compiles source and stores it under name, replacing any template
// already registered there. The filename defaults to the name.
func (e *Engine) Register(name, source string, opts Options) (*Template, error) {
	if name == "" {
		return nil, errors.ValidationError("template name is required")
	}
	if opts.Filename == "" {
		opts.Filename = name
	}

	tmpl, err := e.Compile(source, opts)
	if err != nil {
		return nil, err
	}
	tmpl.Name = name

	e.mu.Lock()
	e.templates[name] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// Lookup returns the template registered under name.
func (e *Engine) Lookup(name string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tmpl, ok := e.templates[name]
	return tmpl, ok
}

// RenderNamed renders the template registered under name.
func (e *Engine) RenderNamed(ctx context.Context, name string, vars map[string]interface{}) (string, error) {
	tmpl, ok := e.Lookup(name)
	if !ok {
		return "", errors.NotFoundError(fmt.Sprintf("template %q", name))
	}
	return e.Render(logging.ContextWithTemplate(ctx, name), tmpl, vars)
}

// Templates returns the registered names in sorted order.
func (e *Engine) Templates() []string {
	e.mu.RLock()
	names := lo.Keys(e.templates)
	e.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ClearCache drops the compiled-program cache, and the evaluator's own cache
// when it keeps one. Registered templates stay.
func (e *Engine) ClearCache() {
	if e.programs != nil {
		e.programs.Flush()
	}
	if c, ok := e.evaluator.(cacheClearer); ok {
		c.ClearCache()
	}
}

// CacheSize returns the number of cached compiled programs.
func (e *Engine) CacheSize() int {
	if e.programs == nil {
		return 0
	}
	return e.programs.ItemCount()
}

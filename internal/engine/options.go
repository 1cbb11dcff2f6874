package engine

import (
	"fmt"
	"time"

	"erbgo/internal/common/logging"
	"erbgo/internal/erb"
)

// DefaultFilename labels templates that were not given a name.
const DefaultFilename = "(erb)"

// EngineConfig configures the engine.
type EngineConfig struct {
	MaxTemplateSize int            `json:"max_template_size"`
	CacheTemplates  bool           `json:"cache_templates"`
	CacheTTL        time.Duration  `json:"cache_ttl"`
	MaxWorkers      int            `json:"max_workers"`
	Logger          logging.Logger `json:"-"`
}

// DefaultEngineConfig returns the configuration used when NewEngine gets nil.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxTemplateSize: 1024 * 1024, // 1MB
		CacheTemplates:  true,
		CacheTTL:        5 * time.Minute,
		MaxWorkers:      8,
	}
}

// Options controls how one template is compiled and run.
type Options struct {
	TrimMode    erb.TrimMode       `json:"trim_mode"`
	Percent     bool               `json:"percent"`
	Accumulator string             `json:"accumulator"`
	Isolation   erb.IsolationLevel `json:"isolation"`
	Filename    string             `json:"filename"`
}

func (o Options) withDefaults() Options {
	if o.Accumulator == "" {
		o.Accumulator = erb.DefaultAccumulator
	}
	if o.Filename == "" {
		o.Filename = DefaultFilename
	}
	return o
}

func (o Options) compilerOptions() []erb.Option {
	return []erb.Option{
		erb.WithTrimMode(o.TrimMode),
		erb.WithPercent(o.Percent),
		erb.WithAccumulator(o.Accumulator),
	}
}

// ParseOptions builds Options from their command line and environment
// spellings: an ERB trim-mode string and an isolation level name or number.
func ParseOptions(trimMode, isolation, accumulator string) (Options, error) {
	mode, percent, err := erb.ParseTrimMode(trimMode)
	if err != nil {
		return Options{}, err
	}
	level, err := erb.ParseIsolationLevel(isolation)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TrimMode:    mode,
		Percent:     percent,
		Accumulator: accumulator,
		Isolation:   level,
	}, nil
}

// cacheKey identifies a compiled program. Isolation and filename are not part
// of it: they only matter when the program runs.
func (o Options) cacheKey(dialect string) string {
	return fmt.Sprintf("%s|%s|%t|%s", dialect, o.TrimMode, o.Percent, o.Accumulator)
}

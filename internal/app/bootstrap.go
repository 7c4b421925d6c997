package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/trentlee0/utools-template/internal/config"
	"github.com/trentlee0/utools-template/internal/fuzzy"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	"github.com/trentlee0/utools-template/internal/pinyin"
	"github.com/trentlee0/utools-template/internal/plugin"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap(ctx context.Context) error {
	steps := []func(context.Context) error{
		b.initConfig,
		b.initLogger,
		b.initSearcher,
		b.initPlugins,
		b.initDispatcher,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

func (b *bootstrapper) initConfig(context.Context) error {
	path := b.opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}

	if b.opts.LogLevel != "" {
		if !logging.ValidLevel(b.opts.LogLevel) {
			return &InitError{Component: "config", Err: fmt.Errorf("invalid log level %q", b.opts.LogLevel)}
		}
		cfg.Log.Level = b.opts.LogLevel
	}
	cfg.Plugins = append(cfg.Plugins, b.opts.PluginPaths...)

	b.app.config = cfg
	b.initOrder = append(b.initOrder, "config")
	return nil
}

// initLogger writes to the configured log file, falling back to
// Options.LogOutput.
func (b *bootstrapper) initLogger(context.Context) error {
	lc := b.app.config.Logging()
	lc.Output = b.opts.LogOutput
	if lc.Output == nil {
		lc.Output = os.Stderr
	}

	if path := b.app.config.LogFile(); path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		b.app.logFile = f
		lc.Output = f
	}

	b.app.log = logging.New(lc)
	logging.SetDefault(b.app.log)
	b.initOrder = append(b.initOrder, "logger")

	if p := b.app.config.Path(); p != "" {
		b.app.log.Debug("loaded config %s", p)
	}
	return nil
}

func openLogFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (b *bootstrapper) initSearcher(context.Context) error {
	cfg := b.app.config
	b.app.searcher = pinyin.NewSearcher(cfg.Search.CacheSize, cfg.MatchOptions())
	b.app.fuzzy = fuzzy.NewSearcher(cfg.FuzzyOptions())
	b.initOrder = append(b.initOrder, "searcher")
	return nil
}

// initPlugins loads every plugin it finds. Plugins that fail are logged
// and skipped.
func (b *bootstrapper) initPlugins(ctx context.Context) error {
	cfg := b.app.config
	log := b.app.log.WithComponent("plugins")

	mc := plugin.DefaultManagerConfig()
	if paths := cfg.PluginPaths(); len(paths) > 0 {
		mc.PluginPaths = paths
	}
	mc.ExecutionTimeout = cfg.ExecutionTimeout.Std()
	mc.Logger = log

	m := plugin.NewManager(mc)
	m.Subscribe(func(ev plugin.ManagerEvent) {
		if ev.Type == plugin.EventPluginError {
			log.Err(ev.Error, "plugin %s", ev.Plugin)
		}
	})
	if err := m.LoadAll(ctx); err != nil {
		if ctx.Err() != nil {
			return &InitError{Component: "plugins", Err: ctx.Err()}
		}
		log.Warn("%v", err)
	}

	b.app.plugins = m
	b.initOrder = append(b.initOrder, "plugins")
	log.Info("loaded %d plugins", len(m.List()))
	return nil
}

func (b *bootstrapper) initDispatcher(context.Context) error {
	exports, features, err := b.app.compile()
	if err != nil {
		return &InitError{Component: "compile", Err: err}
	}
	b.app.exports, b.app.features = exports, features

	b.app.dispatcher = host.NewDispatcher(exports, features,
		host.WithKeywordMatcher(b.app.keywordMatcher()),
		host.WithLogger(b.app.log.WithComponent("dispatcher")),
	)
	b.initOrder = append(b.initOrder, "dispatcher")
	return nil
}

// cleanup performs cleanup in reverse initialization order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "config":
		b.app.config = nil
	case "logger":
		if b.app.logFile != nil {
			_ = b.app.logFile.Close()
			b.app.logFile = nil
		}
	case "searcher":
		b.app.searcher = nil
		b.app.fuzzy = nil
	case "plugins":
		if b.app.plugins != nil {
			_ = b.app.plugins.UnloadAll()
			b.app.plugins = nil
		}
	case "dispatcher":
		b.app.dispatcher = nil
	}
}

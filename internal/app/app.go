// Package app wires the feature host together: configuration, logging,
// plugins, template compilation, the dispatcher and the launcher UI.
package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/trentlee0/utools-template/internal/config"
	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/fuzzy"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
	"github.com/trentlee0/utools-template/internal/pinyin"
	"github.com/trentlee0/utools-template/internal/plugin"
	"github.com/trentlee0/utools-template/internal/ui"
)

// Application owns every long-lived component of the host.
type Application struct {
	mu sync.RWMutex

	config  *config.Config
	log     *logging.Logger
	logFile io.Closer

	plugins  *plugin.Manager
	searcher *pinyin.Searcher
	fuzzy    *fuzzy.Searcher

	exports    feature.Exports
	features   []host.Feature
	dispatcher *host.Dispatcher
	watcher    *plugin.Watcher

	running atomic.Bool
	closed  atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty means config.DefaultPath.
	ConfigPath string

	// LogLevel overrides the configured level when set.
	LogLevel string

	// LogOutput receives logs when the configuration names no log file.
	// Defaults to os.Stderr.
	LogOutput io.Writer

	// PluginPaths are searched after the configured plugin paths.
	PluginPaths []string

	// Watch reloads plugins whose files change while the launcher runs.
	Watch bool
}

// New loads the configuration and plugins and compiles the features.
func New(ctx context.Context, opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.log
}

// Plugins returns the plugin manager.
func (app *Application) Plugins() *plugin.Manager {
	return app.plugins
}

// Searcher returns the phonetic searcher.
func (app *Application) Searcher() *pinyin.Searcher {
	return app.searcher
}

// Dispatcher returns the dispatcher over the current compilation.
func (app *Application) Dispatcher() *host.Dispatcher {
	return app.dispatcher
}

// Exports returns the current compilation.
func (app *Application) Exports() feature.Exports {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.exports
}

// Features returns the launcher metadata of the current compilation.
func (app *Application) Features() []host.Feature {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return append([]host.Feature(nil), app.features...)
}

// Recompile compiles the templates of the loaded plugins again and hands
// the result to the dispatcher. On failure the previous compilation stays
// in use.
func (app *Application) Recompile() error {
	exports, features, err := app.compile()
	if err != nil {
		return &ComponentError{Component: "compile", Action: "recompile", Err: err}
	}

	app.mu.Lock()
	app.exports, app.features = exports, features
	app.mu.Unlock()

	app.dispatcher.Reload(exports, features)
	app.log.Info("recompiled %d features", len(exports))
	return nil
}

// compile builds exports from the plugin templates and merges the
// configured features over the plugin ones.
func (app *Application) compile() (feature.Exports, []host.Feature, error) {
	cfg := app.config

	opts := []feature.CompileOption{
		feature.WithSearcher(app.searcherFactory()),
		feature.WithLogger(app.log.WithComponent("compile")),
	}
	if cfg.Compile.Strict {
		opts = append(opts, feature.WithStrict())
	}
	exports, err := feature.Compile(app.plugins.Templates(), opts...)
	if err != nil {
		return nil, nil, err
	}

	pluginFeatures, err := app.plugins.Features()
	if err != nil {
		return nil, nil, err
	}
	configured, err := cfg.BuildFeatures()
	if err != nil {
		return nil, nil, err
	}
	return exports, mergeFeatures(pluginFeatures, configured), nil
}

// searcherFactory returns the list filter for the configured search mode.
func (app *Application) searcherFactory() feature.SearcherFactory {
	var factory feature.SearcherFactory
	switch app.config.Search.Mode {
	case config.SearchSubstring:
		factory = feature.SubstringSearcher
	case config.SearchFuzzy:
		factory = app.fuzzy.Factory()
	default:
		factory = app.searcher.Factory()
	}
	if app.config.Search.Description {
		base := factory
		factory = func(bool) feature.Searcher { return base(true) }
	}
	return factory
}

// keywordMatcher returns how typed input selects keyword cmds.
func (app *Application) keywordMatcher() host.KeywordMatcher {
	switch app.config.Search.Mode {
	case config.SearchSubstring:
		return host.SubstringKeywords
	case config.SearchFuzzy:
		return app.fuzzy.MatchKeyword
	default:
		return app.searcher.MatchKeyword
	}
}

// highlighter returns how the launcher marks matches.
func (app *Application) highlighter() ui.Highlighter {
	if app.config.Search.Mode == config.SearchFuzzy {
		return app.fuzzy.Highlight
	}
	return app.searcher.Highlight
}

// mergeFeatures returns base with every feature of overrides replacing the
// one of the same code, or appended when base has none.
func mergeFeatures(base, overrides []host.Feature) []host.Feature {
	out := append([]host.Feature(nil), base...)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Code] = i
	}
	for _, f := range overrides {
		if i, ok := index[f.Code]; ok {
			out[i] = f
			continue
		}
		index[f.Code] = len(out)
		out = append(out, f)
	}
	return out
}

// Run shows the launcher on screen until the user quits or ctx is done.
// The screen must be initialized; Run does not finalize it.
func (app *Application) Run(ctx context.Context, screen tcell.Screen) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if app.opts.Watch {
		if err := app.startWatcher(ctx, &wg); err != nil {
			return err
		}
	}

	launcher := ui.New(screen, app.dispatcher,
		ui.WithHighlighter(app.highlighter()),
		ui.WithLogger(app.log.WithComponent("ui")),
	)
	err := launcher.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

func (app *Application) startWatcher(ctx context.Context, wg *sync.WaitGroup) error {
	w, err := plugin.NewWatcher(app.plugins,
		plugin.WithWatcherLogger(app.log.WithComponent("watcher")),
		plugin.WithReloadCallback(func(name string, err error) {
			if err != nil {
				return
			}
			if err := app.Recompile(); err != nil {
				app.log.Err(err, "after reloading %s", name)
			}
		}),
	)
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}

	app.mu.Lock()
	app.watcher = w
	app.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.Close()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.log.Err(err, "plugin watcher stopped")
		}
	}()
	app.log.Info("watching %d plugin directories", len(w.Dirs()))
	return nil
}

// Shutdown unloads the plugins and closes the log file. It is safe to call
// more than once.
func (app *Application) Shutdown() {
	if !app.closed.CompareAndSwap(false, true) {
		return
	}

	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}

	if app.plugins != nil {
		if err := app.plugins.UnloadAll(); err != nil {
			app.log.Err(err, "unloading plugins")
		}
	}
	if app.logFile != nil {
		_ = app.logFile.Close()
	}
}

// Package ui is a terminal launcher for compiled features.
//
// The top level lists the features whose cmds match the typed text. Enter
// opens the highlighted one; list features then show their items and the
// typed text becomes the list query. Esc closes the open list, or quits at
// the top level.
package ui

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/logging"
)

// Highlighter returns the rune range [from, to) of text that query
// matches.
type Highlighter func(text, query string) (from, to int, ok bool)

// Dispatcher is the part of *host.Dispatcher the launcher drives.
type Dispatcher interface {
	Candidates(input string) []host.Candidate
	Open(code string, action feature.Action) error
	Search(query string) error
	Select(index int) error
	Close()
	Current() (host.View, bool)
	Subscribe(l host.RenderListener) func()
}

// Launcher owns the screen and the event loop.
type Launcher struct {
	screen    tcell.Screen
	disp      Dispatcher
	highlight Highlighter
	log       *logging.Logger
	theme     Theme

	// Top level input, kept while a list is open
	input []rune
	// Query of the open list
	query []rune

	candidates []host.Candidate
	view       *host.View

	selected int
	offset   int
	status   string

	quit        bool
	unsubscribe func()
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithHighlighter sets how matches are highlighted.
func WithHighlighter(h Highlighter) Option {
	return func(l *Launcher) {
		l.highlight = h
	}
}

// WithLogger sets the launcher logger.
func WithLogger(log *logging.Logger) Option {
	return func(l *Launcher) {
		l.log = log
	}
}

// WithTheme sets the colors.
func WithTheme(t Theme) Option {
	return func(l *Launcher) {
		l.theme = t
	}
}

// New creates a launcher on an initialized screen. Renders are forwarded
// to the event loop as interrupt events.
func New(screen tcell.Screen, disp Dispatcher, opts ...Option) *Launcher {
	l := &Launcher{
		screen: screen,
		disp:   disp,
		log:    logging.Nop(),
		theme:  DefaultTheme(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.unsubscribe = disp.Subscribe(func(v host.View) {
		if err := screen.PostEvent(tcell.NewEventInterrupt(v)); err != nil {
			l.log.Warn("dropped render of %q: %v", v.Code, err)
		}
	})
	return l
}

type quitEvent struct{}

// Run processes events until the user quits or ctx is done.
func (l *Launcher) Run(ctx context.Context) error {
	defer l.unsubscribe()

	stop := context.AfterFunc(ctx, func() {
		_ = l.screen.PostEvent(tcell.NewEventInterrupt(quitEvent{}))
	})
	defer stop()

	l.Draw()
	for !l.quit {
		ev := l.screen.PollEvent()
		if ev == nil {
			return nil
		}
		l.HandleEvent(ev)
		l.Draw()
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Quit reports whether the user asked to quit.
func (l *Launcher) Quit() bool {
	return l.quit
}

// HandleEvent applies one screen event.
func (l *Launcher) HandleEvent(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		l.handleKey(e)
	case *tcell.EventInterrupt:
		switch data := e.Data().(type) {
		case host.View:
			l.applyView(data)
		case quitEvent:
			l.quit = true
		}
	case *tcell.EventResize:
		l.screen.Sync()
	}
}

func (l *Launcher) handleKey(e *tcell.EventKey) {
	switch e.Key() {
	case tcell.KeyEscape:
		if l.view != nil {
			l.closeList()
			return
		}
		l.quit = true
	case tcell.KeyCtrlC:
		l.quit = true
	case tcell.KeyEnter:
		l.activate()
	case tcell.KeyUp, tcell.KeyCtrlP:
		l.move(-1)
	case tcell.KeyDown, tcell.KeyCtrlN:
		l.move(1)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		text := l.text()
		if len(*text) > 0 {
			*text = (*text)[:len(*text)-1]
			l.edited()
		}
	case tcell.KeyCtrlU:
		*l.text() = nil
		l.edited()
	case tcell.KeyRune:
		*l.text() = append(*l.text(), e.Rune())
		l.edited()
	}
}

// text returns the line being edited.
func (l *Launcher) text() *[]rune {
	if l.view != nil {
		return &l.query
	}
	return &l.input
}

func (l *Launcher) edited() {
	l.status = ""
	l.selected, l.offset = 0, 0
	if l.view != nil {
		if err := l.disp.Search(string(l.query)); err != nil {
			l.fail(err)
		}
		return
	}
	l.candidates = l.disp.Candidates(string(l.input))
}

func (l *Launcher) activate() {
	l.status = ""
	if l.view != nil {
		if len(l.view.Items) == 0 {
			return
		}
		if err := l.disp.Select(l.selected); err != nil {
			l.fail(err)
		}
		return
	}

	if l.selected >= len(l.candidates) {
		return
	}
	c := l.candidates[l.selected]
	err := l.disp.Open(c.Feature.Code, c.Action)
	if v, ok := l.disp.Current(); ok && v.Code == c.Feature.Code {
		l.view = &v
		l.query = nil
		l.selected, l.offset = 0, 0
	}
	if err != nil {
		l.fail(err)
	}
}

func (l *Launcher) closeList() {
	l.disp.Close()
	l.view = nil
	l.query = nil
	l.status = ""
	l.candidates = l.disp.Candidates(string(l.input))
	l.selected, l.offset = 0, 0
}

// applyView shows a render of the open list. Renders of lists closed in
// the meantime are ignored.
func (l *Launcher) applyView(v host.View) {
	if l.view == nil || v.SessionID != l.view.SessionID {
		return
	}
	l.view = &v
	if l.selected >= len(v.Items) {
		l.selected = max(len(v.Items)-1, 0)
	}
}

func (l *Launcher) move(delta int) {
	n := l.rows()
	if n == 0 {
		return
	}
	l.selected = (l.selected + delta + n) % n
}

func (l *Launcher) rows() int {
	if l.view != nil {
		return len(l.view.Items)
	}
	return len(l.candidates)
}

func (l *Launcher) fail(err error) {
	l.log.Warn("%v", err)
	l.status = err.Error()
}

// Selected returns the highlighted row.
func (l *Launcher) Selected() int {
	return l.selected
}

// Status returns the last error shown to the user.
func (l *Launcher) Status() string {
	return l.status
}

// View returns the open list, if any.
func (l *Launcher) View() (host.View, bool) {
	if l.view == nil {
		return host.View{}, false
	}
	return *l.view, true
}

package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentlee0/utools-template/internal/feature"
	"github.com/trentlee0/utools-template/internal/host"
	"github.com/trentlee0/utools-template/internal/pinyin"
)

type fixture struct {
	screen tcell.SimulationScreen
	disp   *host.Dispatcher
	ui     *Launcher

	mu     sync.Mutex
	hellos int
	late   feature.RenderFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{}

	exports, err := feature.NewBuilder().
		None(feature.NoneTemplate{Code: "hello", Handler: func(feature.Action) error {
			fx.mu.Lock()
			defer fx.mu.Unlock()
			fx.hellos++
			return nil
		}}).
		FixedList(feature.FixedListTemplate{
			Code:        "colors",
			Placeholder: "pick a color",
			Items: []feature.FixedItem{
				{ListItem: feature.ListItem{Title: "Red", Description: "warm"}, Handler: func(feature.Action) error { return nil }},
				{ListItem: feature.ListItem{Title: "绿色", Description: "green"}, Handler: func(feature.Action) error {
					return errors.New("green failed")
				}},
			},
		}).
		DynamicList(feature.DynamicListTemplate{
			Code: "slow",
			Enter: func(_ feature.Action, render feature.RenderFunc) error {
				fx.mu.Lock()
				defer fx.mu.Unlock()
				fx.late = render
				return nil
			},
			Select: func(feature.Action, feature.ListItem) error { return nil },
		}).
		Build(feature.WithSearcher(pinyin.NewSearcher(0, pinyin.Options{}).Factory()))
	require.NoError(t, err)

	var features []host.Feature
	for _, spec := range []host.FeatureSpec{
		{Code: "hello", Explain: "Say hello", Cmds: []any{"hello"}},
		{Code: "colors", Explain: "Pick a color", Cmds: []any{"colors"}},
		{Code: "slow", Explain: "Slow list", Cmds: []any{"slow"}},
	} {
		f, err := spec.Build()
		require.NoError(t, err)
		features = append(features, f)
	}
	fx.disp = host.NewDispatcher(exports, features)

	fx.screen = tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, fx.screen.Init())
	fx.screen.SetSize(40, 8)
	t.Cleanup(fx.screen.Fini)

	searcher := pinyin.NewSearcher(0, pinyin.Options{})
	fx.ui = New(fx.screen, fx.disp, WithHighlighter(searcher.Highlight))
	return fx
}

func (fx *fixture) typeText(text string) {
	for _, r := range text {
		fx.key(tcell.KeyRune, r)
	}
}

func (fx *fixture) key(k tcell.Key, r rune) {
	fx.ui.HandleEvent(tcell.NewEventKey(k, r, tcell.ModNone))
	fx.pump()
}

// pump applies queued interrupt events and redraws.
func (fx *fixture) pump() {
	for fx.screen.HasPendingEvent() {
		fx.ui.HandleEvent(fx.screen.PollEvent())
	}
	fx.ui.Draw()
}

func (fx *fixture) line(y int) string {
	width, _ := fx.screen.Size()
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := fx.screen.GetContent(x, y) //nolint:staticcheck // GetContent is the simulation API
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func (fx *fixture) screenText() string {
	_, height := fx.screen.Size()
	lines := make([]string, height)
	for y := range lines {
		lines[y] = fx.line(y)
	}
	return strings.Join(lines, "\n")
}

func TestLauncherCandidates(t *testing.T) {
	fx := newFixture(t)

	fx.typeText("col")
	assert.Equal(t, "> col", fx.line(0))
	assert.Contains(t, fx.line(listTop), "colors")
	assert.Contains(t, fx.line(listTop), "Pick a color")
	assert.NotContains(t, fx.screenText(), "hello")

	fx.key(tcell.KeyCtrlU, 0)
	assert.Equal(t, "> ", fx.line(0)+" ")
	assert.Empty(t, fx.line(listTop))
}

func TestLauncherRunsNoneFeature(t *testing.T) {
	fx := newFixture(t)

	fx.typeText("hello")
	fx.key(tcell.KeyEnter, 0)

	fx.mu.Lock()
	assert.Equal(t, 1, fx.hellos)
	fx.mu.Unlock()
	_, open := fx.ui.View()
	assert.False(t, open)
	assert.Empty(t, fx.ui.Status())
}

func TestLauncherFixedList(t *testing.T) {
	fx := newFixture(t)

	fx.typeText("colors")
	fx.key(tcell.KeyEnter, 0)

	view, open := fx.ui.View()
	require.True(t, open)
	assert.Equal(t, "colors", view.Code)
	assert.Equal(t, "colors > pick a color", fx.line(0))
	assert.Contains(t, fx.line(listTop), "Red")
	assert.Contains(t, fx.line(listTop+1), "绿色")

	fx.typeText("lv")
	view, _ = fx.ui.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, "绿色", view.Items[0].Title)
	assert.Equal(t, "colors > lv", fx.line(0))

	fx.key(tcell.KeyEnter, 0)
	assert.Equal(t, "green failed", fx.ui.Status())
	assert.Equal(t, "green failed", fx.line(1))

	fx.key(tcell.KeyBackspace2, 0)
	fx.key(tcell.KeyBackspace2, 0)
	view, _ = fx.ui.View()
	assert.Len(t, view.Items, 2)
	assert.Empty(t, fx.ui.Status())
}

func TestLauncherNavigation(t *testing.T) {
	fx := newFixture(t)
	fx.typeText("colors")
	fx.key(tcell.KeyEnter, 0)

	assert.Equal(t, 0, fx.ui.Selected())
	fx.key(tcell.KeyDown, 0)
	assert.Equal(t, 1, fx.ui.Selected())
	fx.key(tcell.KeyDown, 0)
	assert.Equal(t, 0, fx.ui.Selected())
	fx.key(tcell.KeyUp, 0)
	assert.Equal(t, 1, fx.ui.Selected())

	fx.key(tcell.KeyEscape, 0)
	_, open := fx.ui.View()
	assert.False(t, open)
	assert.False(t, fx.ui.Quit())
	assert.Equal(t, "> colors", fx.line(0))

	fx.key(tcell.KeyEscape, 0)
	assert.True(t, fx.ui.Quit())
}

func TestLauncherLateRender(t *testing.T) {
	fx := newFixture(t)
	fx.typeText("slow")
	fx.key(tcell.KeyEnter, 0)

	view, open := fx.ui.View()
	require.True(t, open)
	assert.Empty(t, view.Items)

	fx.mu.Lock()
	render := fx.late
	fx.mu.Unlock()
	require.NotNil(t, render)

	done := make(chan struct{})
	go func() {
		defer close(done)
		render([]feature.ListItem{{Title: "late item"}})
	}()
	<-done

	require.Eventually(t, fx.screen.HasPendingEvent, time.Second, 5*time.Millisecond)
	fx.pump()
	view, _ = fx.ui.View()
	require.Len(t, view.Items, 1)
	assert.Contains(t, fx.line(listTop), "late item")
}

func TestLauncherDropsRenderAfterClose(t *testing.T) {
	fx := newFixture(t)
	fx.typeText("slow")
	fx.key(tcell.KeyEnter, 0)

	fx.mu.Lock()
	render := fx.late
	fx.mu.Unlock()

	fx.key(tcell.KeyEscape, 0)
	render([]feature.ListItem{{Title: "too late"}})
	fx.pump()

	_, open := fx.ui.View()
	assert.False(t, open)
	assert.NotContains(t, fx.screenText(), "too late")
}

func TestLauncherIgnoresForeignViews(t *testing.T) {
	fx := newFixture(t)
	fx.typeText("colors")
	fx.key(tcell.KeyEnter, 0)

	fx.ui.HandleEvent(tcell.NewEventInterrupt(host.View{SessionID: "other", Items: []feature.ListItem{{Title: "x"}}}))
	view, _ := fx.ui.View()
	assert.Len(t, view.Items, 2)
}

func TestLauncherHighlight(t *testing.T) {
	fx := newFixture(t)
	fx.typeText("colors")
	fx.key(tcell.KeyEnter, 0)
	fx.typeText("lv")

	_, _, style, _ := fx.screen.GetContent(1, listTop) //nolint:staticcheck // GetContent is the simulation API
	assert.Equal(t, fx.ui.theme.Match.Reverse(true), style)
}

func TestLauncherRunStopsOnCancel(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.ui.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestLauncherRunQuitsOnEscape(t *testing.T) {
	fx := newFixture(t)

	done := make(chan error, 1)
	go func() { done <- fx.ui.Run(context.Background()) }()
	fx.screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

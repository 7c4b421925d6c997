package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Theme holds the launcher styles.
type Theme struct {
	Prompt      tcell.Style
	Input       tcell.Style
	Placeholder tcell.Style
	Title       tcell.Style
	Description tcell.Style
	Match       tcell.Style
	Selected    tcell.Style
	Error       tcell.Style
	Border      tcell.Style
}

// DefaultTheme returns the default styles.
func DefaultTheme() Theme {
	base := tcell.StyleDefault
	return Theme{
		Prompt:      base.Foreground(tcell.ColorTeal).Bold(true),
		Input:       base,
		Placeholder: base.Dim(true),
		Title:       base,
		Description: base.Foreground(tcell.ColorGray),
		Match:       base.Foreground(tcell.ColorYellow).Bold(true),
		Selected:    base.Reverse(true),
		Error:       base.Foreground(tcell.ColorRed),
		Border:      base.Foreground(tcell.ColorGray),
	}
}

// listTop is the first row of the list.
const listTop = 2

// Draw repaints the whole screen.
func (l *Launcher) Draw() {
	s := l.screen
	s.Clear()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	prompt := "> "
	if l.view != nil {
		prompt = l.view.Code + " > "
	}
	x := drawText(s, 0, 0, width, prompt, l.theme.Prompt)
	text := string(*l.text())
	end := drawText(s, x, 0, width, text, l.theme.Input)
	if text == "" && l.view != nil && l.view.Placeholder != "" {
		drawText(s, x, 0, width, l.view.Placeholder, l.theme.Placeholder)
	}
	s.ShowCursor(end, 0)

	if l.status != "" {
		drawText(s, 0, 1, width, l.status, l.theme.Error)
	} else {
		fill(s, 0, 1, width, tcell.RuneHLine, l.theme.Border)
	}

	l.drawList(width, height)
	s.Show()
}

func (l *Launcher) drawList(width, height int) {
	rows := height - listTop
	if rows <= 0 {
		return
	}
	n := l.rows()
	if l.selected < l.offset {
		l.offset = l.selected
	}
	if l.selected >= l.offset+rows {
		l.offset = l.selected - rows + 1
	}

	scr := l.screen
	query := string(*l.text())
	for i := 0; i < rows && l.offset+i < n; i++ {
		idx := l.offset + i
		title, desc := l.row(idx)
		y := listTop + i

		titleStyle, descStyle, matchStyle := l.theme.Title, l.theme.Description, l.theme.Match
		if idx == l.selected {
			titleStyle = l.theme.Selected
			descStyle = l.theme.Selected
			matchStyle = l.theme.Match.Reverse(true)
			fill(scr, 0, y, width, ' ', l.theme.Selected)
		}

		x := 1
		if from, to, ok := l.match(title, query); ok {
			x = drawHighlighted(scr, x, y, width, title, from, to, titleStyle, matchStyle)
		} else {
			x = drawText(scr, x, y, width, title, titleStyle)
		}
		if desc != "" {
			drawText(scr, x+2, y, width, desc, descStyle)
		}
	}

	if n > rows {
		counter := fmt.Sprintf(" %d/%d ", l.selected+1, n)
		drawText(scr, width-runewidth.StringWidth(counter), 1, width, counter, l.theme.Border)
	}
}

// row returns the title and description of a displayed row.
func (l *Launcher) row(i int) (string, string) {
	if l.view != nil {
		it := l.view.Items[i]
		return it.Title, it.Description
	}
	c := l.candidates[i]
	desc := c.Feature.Explain
	if desc == c.Title() {
		desc = ""
	}
	return c.Title(), desc
}

func (l *Launcher) match(title, query string) (int, int, bool) {
	if l.highlight == nil || query == "" {
		return 0, 0, false
	}
	return l.highlight(title, query)
}

// drawText draws text from column x, clipped at maxX, and returns the
// column after it.
func drawText(s tcell.Screen, x, y, maxX int, text string, style tcell.Style) int {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		s.SetContent(x, y, r, nil, style)
		x += w
	}
	return x
}

// drawHighlighted draws text with the runes [from, to) in match style.
func drawHighlighted(s tcell.Screen, x, y, maxX int, text string, from, to int, style, match tcell.Style) int {
	i := 0
	for _, r := range text {
		st := style
		if i >= from && i < to {
			st = match
		}
		i++
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		s.SetContent(x, y, r, nil, st)
		x += w
	}
	return x
}

func fill(s tcell.Screen, x, y, maxX int, r rune, style tcell.Style) {
	for ; x < maxX; x++ {
		s.SetContent(x, y, r, nil, style)
	}
}

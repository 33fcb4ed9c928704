package tui

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	mdMu        sync.Mutex
	mdRenderers = map[int]*glamour.TermRenderer{}
)

// renderMarkdown renders task notes for the preview pane. Renderers are cached
// per wrap width; glamour setup is expensive relative to a render.
func renderMarkdown(src string, width int) string {
	if width < 10 {
		width = 10
	}
	mdMu.Lock()
	r, ok := mdRenderers[width]
	if !ok {
		style := "light"
		if hasDarkBackground {
			style = "dark"
		}
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdMu.Unlock()
			return src
		}
		mdRenderers[width] = r
	}
	mdMu.Unlock()

	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return out
}

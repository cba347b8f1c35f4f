// Package chunk provides the full-text view of a single indexed chunk.
package chunk

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// View shows one chunk's text with scrolling. With an index inspector
// it can also step to the neighbouring chunks in insertion order.
type View struct {
	styles    *styles.Styles
	inspector driving.IndexInspector

	result       domain.SearchResult
	fromSearch   bool
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
}

// NewView creates a new chunk view. inspector may be nil.
func NewView(s *styles.Styles, inspector driving.IndexInspector) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		inspector: inspector,
		width:     80,
		height:    24,
	}
}

// SetResult shows a search result.
func (v *View) SetResult(result domain.SearchResult) {
	v.result = result
	v.fromSearch = true
	v.reset()
}

// setChunk shows a chunk reached by stepping, which has no scores.
func (v *View) setChunk(meta domain.ChunkMeta) {
	v.result = domain.SearchResult{
		SourcePath:   meta.SourcePath,
		ChunkIdx:     meta.ChunkIdx,
		FileChunkIdx: meta.FileChunkIdx,
		Text:         meta.Text,
	}
	v.fromSearch = false
	v.reset()
}

func (v *View) reset() {
	v.scrollOffset = 0
	v.err = nil
	v.wrapContent()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the chunk view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChunkLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.setChunk(msg.Chunk)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "]", "right":
		return v, v.step(1)
	case "[", "left":
		return v, v.step(-1)
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSearch}
		}
	}

	return v, nil
}

// step fetches the chunk delta positions away in insertion order.
func (v *View) step(delta int) tea.Cmd {
	if v.inspector == nil {
		return nil
	}
	inspector := v.inspector
	idx := v.result.ChunkIdx + delta
	return func() tea.Msg {
		meta, err := inspector.Chunk(idx)
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("no chunk #%d in this index", idx)
		}
		return messages.ChunkLoaded{Chunk: meta, Err: err}
	}
}

// wrapContent word-wraps the text to the view width.
func (v *View) wrapContent() {
	if strings.TrimSpace(v.result.Text) == "" {
		v.lines = nil
		return
	}

	contentWidth := max(v.width-4, 20)
	wrapped := lipgloss.NewStyle().Width(contentWidth).Render(v.result.Text)

	v.lines = strings.Split(wrapped, "\n")
	for i, line := range v.lines {
		v.lines[i] = strings.TrimRight(line, " ")
	}
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Title, score line, separator, position and help.
	return max(v.height-8, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the chunk view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Path.Render(fmt.Sprintf("%s #%d", v.result.SourcePath, v.result.FileChunkIdx)))
	b.WriteString("\n")

	meta := fmt.Sprintf("chunk %d", v.result.ChunkIdx)
	if v.fromSearch {
		meta += "  score " + list.FormatScore(&v.result)
		if v.result.RerankScore != nil {
			meta += fmt.Sprintf("  overlap %d", v.result.TokenOverlap)
		}
	}
	b.WriteString(v.styles.Muted.Render(meta))
	b.WriteString("\n")

	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if len(v.lines) == 0 {
		b.WriteString(v.styles.Muted.Render("(No content)"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.styles.Normal.Render(v.lines[i]))
		b.WriteString("\n")
	}

	if len(v.lines) > visible {
		b.WriteString("\n")
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage,
			v.scrollOffset+1,
			min(v.scrollOffset+visible, len(v.lines)),
			len(v.lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	help := "[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom"
	if v.inspector != nil {
		help += "  [ / ] prev/next chunk"
	}
	return v.styles.Help.Render(help + "  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
	v.scrollOffset = min(v.scrollOffset, v.maxScrollOffset())
}

// Result returns the displayed chunk.
func (v *View) Result() domain.SearchResult {
	return v.result
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

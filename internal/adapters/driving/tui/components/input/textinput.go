// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// maxHistory bounds the remembered queries.
const maxHistory = 50

// QueryInput is the query line with recall of earlier queries.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int

	// history holds submitted queries, oldest first. cursor == len(history)
	// means the line is not showing a recalled entry.
	history []string
	cursor  int
}

// NewQueryInput creates a new query input component.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question about the docs..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &QueryInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the query input.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages. ctrl+p and ctrl+n walk the query history.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+p":
			q.recall(-1)
			return q, nil
		case "ctrl+n":
			q.recall(1)
			return q, nil
		}
	}

	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

func (q *QueryInput) recall(step int) {
	next := q.cursor + step
	if next < 0 || next > len(q.history) {
		return
	}
	q.cursor = next
	if next == len(q.history) {
		q.textinput.SetValue("")
		return
	}
	q.textinput.SetValue(q.history[next])
	q.textinput.CursorEnd()
}

// Submit records the current value in the history and returns it.
// Consecutive duplicates are stored once.
func (q *QueryInput) Submit() string {
	value := q.textinput.Value()
	if value != "" && (len(q.history) == 0 || q.history[len(q.history)-1] != value) {
		q.history = append(q.history, value)
		if len(q.history) > maxHistory {
			q.history = q.history[len(q.history)-maxHistory:]
		}
	}
	q.cursor = len(q.history)
	return value
}

// History returns the submitted queries, oldest first.
func (q *QueryInput) History() []string {
	return q.history
}

// View renders the query input.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Query: ")
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (q *QueryInput) Value() string {
	return q.textinput.Value()
}

// SetValue sets the input value.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	// Account for label and padding
	q.textinput.Width = max(width-11, 20)
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the input and leaves history navigation.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
	q.cursor = len(q.history)
}

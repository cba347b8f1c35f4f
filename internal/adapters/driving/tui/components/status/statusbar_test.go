package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// wideBar avoids hint wrapping in view assertions.
func wideBar() *Bar {
	bar := NewBar(nil, nil)
	bar.SetWidth(200)
	return bar
}

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("error message")
	bar.SetResultCount(10)
	bar.SetRerank(true)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.True(t, bar.rerank)
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Bar)
		want  []string
	}{
		{"ready", func(*Bar) {}, []string{"Ready", "quit"}},
		{"ready with message", func(b *Bar) { b.SetMessage("Index loaded") }, []string{"Index loaded"}},
		{"searching", func(b *Bar) { b.SetState(StateSearching) }, []string{"Searching"}},
		{"error", func(b *Bar) { b.SetState(StateError) }, []string{"Error"}},
		{"error with message", func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage("connection failed")
		}, []string{"Error", "connection failed"}},
		{"results", func(b *Bar) {
			b.SetState(StateResults)
			b.SetResultCount(5)
		}, []string{"5 results", "rerank", "open"}},
		{"rerank and records", func(b *Bar) {
			b.SetRerank(true)
			b.SetRecords(42)
		}, []string{"rerank", "42 chunks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := wideBar()
			tt.setup(bar)

			view := bar.View()
			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}

func TestStatusBar_View_NoRerankByDefault(t *testing.T) {
	view := wideBar().View()

	assert.NotContains(t, view, "rerank")
	assert.NotContains(t, view, "chunks")
}

func TestState_Constants(t *testing.T) {
	assert.Equal(t, State("ready"), StateReady)
	assert.Equal(t, State("searching"), StateSearching)
	assert.Equal(t, State("error"), StateError)
	assert.Equal(t, State("results"), StateResults)
}

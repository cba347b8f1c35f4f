package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(&Ports{Search: &MockSearchService{}, Index: &MockIndexInspector{}}, Options{TopK: 3})
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

// searchFor types a query, submits it and feeds the result back.
func searchFor(t *testing.T, app *App, query string) {
	t.Helper()
	app.SearchView().SetQuery(query)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{Search: &MockSearchService{}}, Options{})

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewSearch, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{}, Options{})

	assert.ErrorIs(t, err, ErrMissingSearchService)
	assert.Nil(t, app)
}

func TestNewApp_RerankOption(t *testing.T) {
	app, err := NewApp(&Ports{Search: &MockSearchService{}}, Options{Rerank: true})
	require.NoError(t, err)

	assert.True(t, app.SearchView().Rerank())
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t)
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.Init())
	assert.Equal(t, "sercha-rag - 2 chunks (cosine)", app.windowTitle())

	bare, err := NewApp(&Ports{Search: &MockSearchService{}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sercha-rag", bare.windowTitle())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Search: &MockSearchService{}}, Options{})
	require.NoError(t, err)

	_, cmd := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Equal(t, 120, app.width)
}

func TestApp_SearchAndOpenChunk(t *testing.T) {
	app := newTestApp(t)
	searchFor(t, app, "beta")

	assert.Len(t, app.SearchView().Results(), 2)
	assert.Contains(t, app.View(), "Results (2)")

	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewChunk, app.CurrentView())
	assert.Equal(t, "/docs/b.md", app.ChunkView().Result().SourcePath)
	assert.Contains(t, app.View(), "beta")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewSearch, app.CurrentView())
}

func TestApp_ChunkStepping(t *testing.T) {
	app := newTestApp(t)
	app.Update(messages.ResultSelected{Result: domain.SearchResult{SourcePath: "/docs/a.md", ChunkIdx: 0, Text: "alpha"}})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, 1, app.ChunkView().Result().ChunkIdx)
}

func TestApp_QuitKeys(t *testing.T) {
	app := newTestApp(t)

	// Typing q into the query line does not quit.
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.False(t, isQuit(cmd))
	assert.Equal(t, "q", app.SearchView().Query())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))

	searchFor(t, app, "alpha")
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, isQuit(cmd))

	_, cmd = app.Update(messages.Quit{})
	assert.True(t, isQuit(cmd))
}

func TestApp_SearchUsesTopK(t *testing.T) {
	var got domain.SearchOptions
	search := &MockSearchService{
		SearchFunc: func(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
			got = opts
			return nil, nil
		},
	}
	app, err := NewApp(&Ports{Search: search}, Options{TopK: 9})
	require.NoError(t, err)
	app.SetDimensions(100, 30)

	searchFor(t, app, "anything")

	assert.Equal(t, 9, got.TopK)
	assert.False(t, got.Rerank)
}

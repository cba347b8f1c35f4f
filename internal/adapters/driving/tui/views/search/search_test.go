package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	SearchFunc func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
	Records    int

	calls []domain.SearchOptions
}

func (m *MockSearchService) Search(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.calls = append(m.calls, opts)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	return testSearchResults(), nil
}

func (m *MockSearchService) State() domain.ServiceState { return domain.StateReady }
func (m *MockSearchService) Count() int { return m.Records }

func testSearchResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Score: 0.95, SourcePath: "/docs/a.md", ChunkIdx: 0, FileChunkIdx: 0, Text: "alpha text"},
		{Score: 0.85, SourcePath: "/docs/b.md", ChunkIdx: 3, FileChunkIdx: 1, Text: "beta text"},
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// runSearch submits a query and feeds the completed search back into the view.
func runSearch(t *testing.T, view *View, query string) {
	t.Helper()
	view.SetQuery(query)
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	view.Update(cmd())
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap(), &MockSearchService{Records: 12})

	require.NotNil(t, view)
	assert.False(t, view.Ready())
	assert.Equal(t, "", view.Query())
	assert.True(t, view.InputFocused())
	assert.False(t, view.Rerank())
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
}

func TestView_WithContext(t *testing.T) {
	view := NewView(nil, nil, nil)
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, view, view.WithContext(ctx))
	assert.Equal(t, ctx, view.ctx)
}

func TestView_Init(t *testing.T) {
	assert.NotNil(t, NewView(nil, nil, nil).Init())
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil, nil)

	updated, cmd := view.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.Ready())
}

func TestView_SearchPassesOptions(t *testing.T) {
	mock := &MockSearchService{}
	view := NewView(nil, nil, mock).WithOptions(7, true)

	runSearch(t, view, "vpn setup")

	require.Len(t, mock.calls, 1)
	assert.Equal(t, domain.SearchOptions{TopK: 7, Rerank: true}, mock.calls[0])
	assert.Len(t, view.Results(), 2)
	assert.False(t, view.InputFocused())
}

func TestView_Update_KeyEnter_EmptyQuery(t *testing.T) {
	mock := &MockSearchService{}
	view := NewView(nil, nil, mock)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, mock.calls)
	assert.True(t, view.InputFocused())
}

func TestView_NoSearchService(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetQuery("x")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	require.IsType(t, messages.ErrorOccurred{}, msg)
	view.Update(msg)
	assert.ErrorIs(t, view.Err(), ErrNoSearchService)
}

func TestView_SearchError(t *testing.T) {
	mock := &MockSearchService{
		SearchFunc: func(context.Context, string, domain.SearchOptions) ([]domain.SearchResult, error) {
			return nil, domain.ErrNotReady
		},
	}
	view := NewView(nil, nil, mock)
	view.SetDimensions(100, 30)

	runSearch(t, view, "anything")

	assert.ErrorIs(t, view.Err(), domain.ErrNotReady)
	assert.True(t, view.InputFocused())
	assert.Contains(t, view.View(), "not_ready")
}

func TestView_EmptyResultsKeepInputFocus(t *testing.T) {
	mock := &MockSearchService{
		SearchFunc: func(context.Context, string, domain.SearchOptions) ([]domain.SearchResult, error) {
			return []domain.SearchResult{}, nil
		},
	}
	view := NewView(nil, nil, mock)
	view.SetDimensions(100, 30)

	runSearch(t, view, "nothing matches")

	assert.NoError(t, view.Err())
	assert.True(t, view.InputFocused())
	assert.Contains(t, view.View(), "No results")
}

func TestView_OpenSelectedResult(t *testing.T) {
	view := NewView(nil, nil, &MockSearchService{})
	runSearch(t, view, "beta")

	view.Update(keyRune('j'))
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.ResultSelected)
	require.True(t, ok)
	assert.Equal(t, "/docs/b.md", msg.Result.SourcePath)
	assert.Equal(t, 3, msg.Result.ChunkIdx)
}

func TestView_RerankToggleRepeatsLastQuery(t *testing.T) {
	mock := &MockSearchService{}
	view := NewView(nil, nil, mock)

	// In the query line r is just text.
	view.Update(keyRune('r'))
	assert.Equal(t, "r", view.Query())
	assert.False(t, view.Rerank())
	assert.Empty(t, mock.calls)

	runSearch(t, view, "alpha")
	require.Len(t, mock.calls, 1)
	assert.False(t, mock.calls[0].Rerank)

	_, cmd := view.Update(keyRune('r'))
	require.NotNil(t, cmd)
	view.Update(cmd())

	assert.True(t, view.Rerank())
	require.Len(t, mock.calls, 2)
	assert.True(t, mock.calls[1].Rerank)
}

func TestView_NewSearchAndBack(t *testing.T) {
	view := NewView(nil, nil, &MockSearchService{})
	runSearch(t, view, "alpha")
	require.False(t, view.InputFocused())

	view.Update(keyRune('n'))
	assert.True(t, view.InputFocused())
	assert.Equal(t, "", view.Query())

	// Esc returns to the previous results.
	view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, view.InputFocused())
	assert.Len(t, view.Results(), 2)

	view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, view.InputFocused())
}

func TestView_View(t *testing.T) {
	view := NewView(nil, nil, &MockSearchService{Records: 12})
	assert.Equal(t, "Initialising...", view.View())

	view.SetDimensions(120, 30)
	runSearch(t, view, "alpha")

	out := view.View()
	assert.Contains(t, out, "sercha-rag")
	assert.Contains(t, out, "/docs/a.md #0")
	assert.Contains(t, out, "2 results")
	assert.Contains(t, out, "12 chunks")
}

func TestView_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil, nil)

	updated, cmd := view.Update(messages.ErrorOccurred{Err: errors.New("something went wrong")})

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.Error(t, view.Err())
}

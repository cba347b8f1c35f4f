package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/chunk"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/search"
)

// Options tunes the searches issued from the TUI.
type Options struct {
	// TopK is the number of results per query. Non-positive uses the service default.
	TopK int

	// Rerank starts the session with lexical reranking on.
	Rerank bool
}

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// searchView is the query line and result list.
	searchView *search.View

	// chunkView shows the full text of the opened result.
	chunkView *chunk.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		searchView:  search.NewView(s, km, ports.Search).WithOptions(opts.TopK, opts.Rerank),
		chunkView:   chunk.NewView(s, ports.Index),
		currentView: messages.ViewSearch,
	}, nil
}

// WithContext sets the context for the app. Searches run under it.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(a.windowTitle()),
		a.searchView.Init(),
	)
}

func (a *App) windowTitle() string {
	if a.ports.Index == nil {
		return "sercha-rag"
	}
	m := a.ports.Index.Manifest()
	return fmt.Sprintf("sercha-rag - %d chunks (%s)", m.Count, m.Metric)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// q quits unless it is being typed into the query line.
		if keymap.Matches(msg.String(), a.keymap.Quit) &&
			(a.currentView == messages.ViewChunk || !a.searchView.InputFocused()) {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewChunk:
			a.chunkView, cmd = a.chunkView.Update(msg)
		default:
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd

	case messages.ResultSelected:
		a.chunkView.SetResult(msg.Result)
		a.currentView = messages.ViewChunk
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ChunkLoaded:
		a.chunkView, cmd = a.chunkView.Update(msg)
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Search results, errors and cursor blinks belong to the search view.
	a.searchView, cmd = a.searchView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	if a.currentView == messages.ViewChunk {
		return a.chunkView.View()
	}
	return a.searchView.View()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView returns the search view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// ChunkView returns the chunk view.
func (a *App) ChunkView() *chunk.View {
	return a.chunkView
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
	a.chunkView.SetDimensions(width, height)
}

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/crewpm/internal/event"
)

// RunFunc executes a request to completion, publishing progress on the bus
// the App was created with.
type RunFunc func(ctx context.Context, request string) error

// App wraps the Bubbletea program.
type App struct {
	bus     *event.Bus
	run     RunFunc
	initial string
}

// New creates a TUI application. When initial is non-empty the run starts
// immediately; otherwise the request is captured in a text area.
func New(bus *event.Bus, run RunFunc, initial string) *App {
	return &App{bus: bus, run: run, initial: initial}
}

// Run starts the program and blocks until the user quits. Quitting while a
// run is in progress cancels it. The returned model reports the outcome.
func (a *App) Run(ctx context.Context) (Model, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(request string) tea.Cmd {
		done := make(chan error, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			done <- a.run(ctx, request)
		}()
		return func() tea.Msg {
			return runDoneMsg{err: <-done}
		}
	}

	program := tea.NewProgram(
		NewModel(a.initial, start),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	id := a.bus.SubscribeAll(func(e event.Event) {
		program.Send(eventMsg{event: e})
	})
	defer a.bus.Unsubscribe(id)

	final, err := program.Run()
	// Let an aborted run record its cancellation before returning.
	cancel()
	wg.Wait()
	m, _ := final.(Model)
	return m, err
}

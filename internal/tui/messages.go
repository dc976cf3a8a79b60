package tui

import "github.com/Iron-Ham/crewpm/internal/event"

// eventMsg delivers a bus event to the program.
type eventMsg struct {
	event event.Event
}

// runDoneMsg is sent when the run function returns.
type runDoneMsg struct {
	err error
}

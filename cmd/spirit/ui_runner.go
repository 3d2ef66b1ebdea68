package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"spirit/internal/pipeline"
	"spirit/internal/ui"
)

// runWithUI drives work in a goroutine while a Bubble Tea program
// renders its progress events. The worker must stop emitting before it
// returns; the channel close quits the program.
func runWithUI(title string, files []string, work func(pipeline.Sink) error) error {
	events := make(chan pipeline.Event, 256)
	outcome := make(chan error, 1)

	go func() {
		outcome <- work(pipeline.ChannelSink{Ch: events})
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	workErr := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return workErr
}

// Package pipeline defines the progress protocol between the driver
// and its observers (CLI output, TUI).
package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageParse is the text parsing stage.
	StageParse Stage = "parse"
	// StageValidate is the IR validation stage.
	StageValidate Stage = "validate"
	// StagePrint is the canonical re-printing stage.
	StagePrint Stage = "print"
	// StageLower is the backend lowering stage.
	StageLower Stage = "lower"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusCached indicates the task was satisfied from the disk cache.
	StatusCached Status = "cached"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for one file (or for the overall pipeline when
// File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}

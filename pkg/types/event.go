package types

import "encoding/json"

// RunStatus is the aggregate state of a browser-driven run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusPass    RunStatus = "pass"
	StatusFail    RunStatus = "fail"
)

// EventName identifies the kind of event emitted to run observers.
type EventName string

const (
	// EventMessage carries a plain text status message.
	EventMessage EventName = "message"
	// EventChecklistUpdate carries the full refreshed checklist as JSON.
	EventChecklistUpdate EventName = "testscriptupdate"
	// EventTestCases carries the authored checklist as JSON at run start.
	EventTestCases EventName = "testcases"
)

// RunEvent is one notification to run observers. Text is set for message
// events, Checklist for checklist-bearing events.
type RunEvent struct {
	Name      EventName
	Text      string
	Checklist json.RawMessage
}

// NewMessageEvent creates a plain text status event.
func NewMessageEvent(text string) RunEvent {
	return RunEvent{Name: EventMessage, Text: text}
}

// NewChecklistUpdateEvent creates a checklist refresh event.
func NewChecklistUpdateEvent(checklist json.RawMessage) RunEvent {
	return RunEvent{Name: EventChecklistUpdate, Checklist: checklist}
}

// NewTestCasesEvent creates an authored-checklist event.
func NewTestCasesEvent(checklist json.RawMessage) RunEvent {
	return RunEvent{Name: EventTestCases, Checklist: checklist}
}

// Emitter delivers run events to whatever observes the run. Implementations
// must not block the caller; the orchestration loop emits from its hot path.
type Emitter interface {
	Emit(event RunEvent)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(RunEvent)

// Emit calls f.
func (f EmitterFunc) Emit(event RunEvent) { f(event) }

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(RunEvent) {}

// ChannelEmitter buffers events on a channel for a single consumer. When
// the buffer is full the event is dropped rather than blocking the run.
type ChannelEmitter struct {
	ch chan RunEvent
}

// NewChannelEmitter creates an emitter with the given buffer size.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelEmitter{ch: make(chan RunEvent, buffer)}
}

// Emit enqueues the event, dropping it if the buffer is full.
func (e *ChannelEmitter) Emit(event RunEvent) {
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the consumer side of the emitter.
func (e *ChannelEmitter) Events() <-chan RunEvent {
	return e.ch
}

// Close closes the event channel. Emit must not be called after Close.
func (e *ChannelEmitter) Close() {
	close(e.ch)
}

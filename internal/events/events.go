// Package events carries notifications from the bridge to whatever frontend
// is listening: streamed command output, command completion and workspace
// cache updates.
package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Topic names an event stream.
type Topic string

const (
	TopicCommandOutput   Topic = "command-output"
	TopicCommandComplete Topic = "command-complete"
	TopicCacheUpdated    Topic = "workspace-cache-updated"
)

// Stream types carried by OutputLine.Type.
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// Event is one notification. Payload is nil for topics without one.
type Event struct {
	Topic   Topic
	Payload interface{}
}

// OutputLine is the payload of a command-output event. Timestamp is in
// milliseconds since the Unix epoch.
type OutputLine struct {
	Type      string `json:"type"`
	Line      string `json:"line"`
	Timestamp int64  `json:"timestamp"`
}

// Completion is the payload of a command-complete event. ExitCode is nil
// when the process was killed by a signal or never produced a status.
type Completion struct {
	Success  bool   `json:"success"`
	ExitCode *int   `json:"exit_code"`
	Command  string `json:"command"`
}

// Channel receives events. Producers treat Publish failures as non-fatal.
type Channel interface {
	Publish(Event) error
}

// NewOutputLine builds a command-output event stamped with now.
func NewOutputLine(stream, line string, now time.Time) Event {
	return Event{
		Topic: TopicCommandOutput,
		Payload: OutputLine{
			Type:      stream,
			Line:      line,
			Timestamp: now.UnixMilli(),
		},
	}
}

// NewCompletion builds a command-complete event. exitCode < 0 means no
// status was available.
func NewCompletion(command string, success bool, exitCode int) Event {
	c := Completion{Success: success, Command: command}
	if exitCode >= 0 {
		code := exitCode
		c.ExitCode = &code
	}
	return Event{Topic: TopicCommandComplete, Payload: c}
}

// CacheUpdated builds a workspace-cache-updated event.
func CacheUpdated() Event {
	return Event{Topic: TopicCacheUpdated}
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(Event) error

func (f ChannelFunc) Publish(e Event) error {
	return f(e)
}

// Discard drops every event.
var Discard Channel = ChannelFunc(func(Event) error { return nil })

// Fanout publishes to every channel in order. All channels receive the
// event; the first error is returned.
func Fanout(channels ...Channel) Channel {
	return ChannelFunc(func(e Event) error {
		var first error
		for _, ch := range channels {
			if ch == nil {
				continue
			}
			if err := ch.Publish(e); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// Recorder keeps every published event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByTopic returns the recorded events with the given topic.
func (r *Recorder) ByTopic(topic Topic) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events with the given topic were recorded.
func (r *Recorder) Count(topic Topic) int {
	return len(r.ByTopic(topic))
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// wireEvent is the JSON-lines shape of an event.
type wireEvent struct {
	Event   Topic       `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// jsonLines writes one JSON object per event. Writes are serialised so lines
// from concurrent stream readers never interleave.
type jsonLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// JSONLines returns a Channel that writes each event to w as a single JSON
// line: {"event":"command-output","payload":{...}}.
func JSONLines(w io.Writer) Channel {
	return &jsonLines{enc: json.NewEncoder(w)}
}

func (j *jsonLines) Publish(e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(wireEvent{Event: e.Topic, Payload: e.Payload})
}

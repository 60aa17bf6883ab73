package events

import "github.com/hamed0406/healthwatch/internal/domain"

// Sink receives check and configuration events for real-time display.
// Publish must not block the caller.
type Sink interface {
	Publish(ev domain.Event)
}

type Discard struct{}

func (Discard) Publish(domain.Event) {}

// Multi forwards each event to every sink.
type Multi []Sink

func (m Multi) Publish(ev domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ev)
		}
	}
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(domain.Event)

func (f SinkFunc) Publish(ev domain.Event) { f(ev) }

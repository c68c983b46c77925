package pipeline

import (
	"errors"

	"github.com/homecage/reachscope/internal/reach"
)

// Sink receives finished events. The pipeline never calls WriteEvent
// concurrently, so implementations need no locking of their own.
type Sink interface {
	WriteEvent(ev *reach.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev *reach.Event) error

// WriteEvent calls f(ev).
func (f SinkFunc) WriteEvent(ev *reach.Event) error { return f(ev) }

// MultiSink writes each event to every sink in order and stops at the
// first error.
type MultiSink []Sink

// WriteEvent implements Sink.
func (m MultiSink) WriteEvent(ev *reach.Event) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// Collector keeps every event in memory.
type Collector struct {
	Events []*reach.Event
}

// WriteEvent implements Sink.
func (c *Collector) WriteEvent(ev *reach.Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	c.Events = append(c.Events, ev)
	return nil
}

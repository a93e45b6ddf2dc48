package agent

import "github.com/moot-ai/moot-backend/internal/stream"

// Stream carries generation events from a running agent turn to its
// consumer. It implements stream.Source: the channel closes when the turn
// finishes, and Err reports the terminal failure, if any, once closed.
type Stream struct {
	ch  chan stream.GenerationEvent
	err error
}

func newStream() *Stream {
	return &Stream{ch: make(chan stream.GenerationEvent, 16)}
}

func (s *Stream) Events() <-chan stream.GenerationEvent { return s.ch }

// Err is valid only after the events channel has closed.
func (s *Stream) Err() error { return s.err }

// fail records the terminal error and closes the stream.
func (s *Stream) fail(err error) {
	s.err = err
	close(s.ch)
}

func (s *Stream) finish() {
	close(s.ch)
}

// send delivers an event unless the consumer has gone away.
func (s *Stream) send(ev stream.GenerationEvent, cancelled <-chan struct{}) bool {
	select {
	case s.ch <- ev:
		return true
	case <-cancelled:
		return false
	}
}

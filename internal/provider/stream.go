package provider

import (
	"context"
	"io"
)

// chanStream adapts a producer goroutine writing into an event channel to
// the pull-based Stream interface every backend returns.
type chanStream struct {
	events chan StreamEvent
	errc   chan error
	cancel context.CancelFunc
	done   bool
}

func newChanStream(ctx context.Context, produce func(ctx context.Context, events chan<- StreamEvent) error) *chanStream {
	runCtx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		events: make(chan StreamEvent, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		err := produce(runCtx, s.events)
		close(s.events)
		s.errc <- err
	}()
	return s
}

func (s *chanStream) Recv() (StreamEvent, error) {
	if s.done {
		return StreamEvent{}, io.EOF
	}
	ev, ok := <-s.events
	if ok {
		return ev, nil
	}
	s.done = true
	if err := <-s.errc; err != nil {
		return StreamEvent{}, err
	}
	return StreamEvent{}, io.EOF
}

func (s *chanStream) Close() error {
	s.cancel()
	return nil
}

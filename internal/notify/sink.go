package notify

import (
	"errors"
	"sync"
)

var (
	ErrSinkClosed = errors.New("subscriber closed")
	ErrSinkFull   = errors.New("subscriber buffer full")
)

// Sink receives serialized snapshots. Send must not block: the hub holds its
// lock while fanning out.
type Sink interface {
	Send(payload []byte) error
	Close()
}

// ChannelSink buffers payloads for a stream handler that drains C().
type ChannelSink struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
	mu   sync.RWMutex
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{
		ch:   make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (s *ChannelSink) Send(payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	select {
	case s.ch <- payload:
		return nil
	default:
		return ErrSinkFull
	}
}

// Close marks the sink as finished. Buffered payloads stay readable.
func (s *ChannelSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.done)
	})
}

func (s *ChannelSink) C() <-chan []byte {
	return s.ch
}

// Done is closed once the hub drops the sink or the owner closes it.
func (s *ChannelSink) Done() <-chan struct{} {
	return s.done
}

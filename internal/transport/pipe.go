package transport

import (
	"sync"
)

// PipeEnd is one side of an in-process Transport. Sends are delivered
// synchronously to the other side's receiver, which keeps tests
// deterministic.
type PipeEnd struct {
	mu       sync.Mutex
	peer     *PipeEnd
	receiver func([]byte)
	paired   chan struct{}
	done     chan struct{}
	closed   bool
	closeAll func()
}

// Pipe returns two connected, already paired ends.
func Pipe() (*PipeEnd, *PipeEnd) {
	paired := make(chan struct{})
	close(paired)
	done := make(chan struct{})
	a := &PipeEnd{paired: paired, done: done}
	b := &PipeEnd{paired: paired, done: done}
	a.peer, b.peer = b, a

	var once sync.Once
	closeAll := func() {
		once.Do(func() {
			a.markClosed()
			b.markClosed()
			close(done)
		})
	}
	a.closeAll, b.closeAll = closeAll, closeAll
	return a, b
}

func (p *PipeEnd) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *PipeEnd) Send(frame []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	p.peer.mu.Lock()
	fn := p.peer.receiver
	p.peer.mu.Unlock()
	if fn != nil {
		fn(append([]byte(nil), frame...))
	}
	return nil
}

func (p *PipeEnd) SetReceiver(fn func([]byte)) {
	p.mu.Lock()
	p.receiver = fn
	p.mu.Unlock()
}

func (p *PipeEnd) Paired() <-chan struct{} { return p.paired }
func (p *PipeEnd) Done() <-chan struct{}   { return p.done }

// Close closes both ends.
func (p *PipeEnd) Close() error {
	p.closeAll()
	return nil
}

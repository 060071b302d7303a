// Package stream forwards an inbound request body into an outbound request
// without buffering the whole document.
package stream

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

// DefaultChunkSize is used when Forward is given a non-positive chunk size.
const DefaultChunkSize = 32 * 1024

// ErrIO is delivered to the reader of a Pipe when the source fails.
var ErrIO = errors.New("stream: i/o failure reading source")

type chunk struct {
	b   []byte
	err error
}

// Pipe is the reading end of a forwarding task started by Forward. At most
// one chunk waits between the source and the reader at a time.
type Pipe struct {
	chunks chan chunk
	closed chan struct{}
	done   chan struct{}
	once   sync.Once

	cur       []byte
	err       error
	forwarded int64

	l log.Logger
}

// Forward starts copying src into the returned Pipe on a new goroutine.
// Callers must Close the Pipe once the outbound side is finished with it.
func Forward(src io.Reader, chunkSize int, l log.Logger) *Pipe {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if l == nil {
		l = log.NewNopLogger()
	}

	p := &Pipe{
		chunks: make(chan chunk, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
		l:      l,
	}
	go p.pump(src, chunkSize)
	return p
}

func (p *Pipe) pump(src io.Reader, size int) {
	defer close(p.done)
	defer close(p.chunks)

	for {
		// The reader may still hold the previous slice, so every chunk gets
		// its own buffer.
		buf := make([]byte, size)
		n, err := src.Read(buf)
		if n > 0 {
			if !p.send(chunk{b: buf[:n]}) {
				p.l.Log("level", "warn", "msg", "outbound side hung up, stopped forwarding body", "forwarded", p.Forwarded())
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			p.l.Log("level", "warn", "msg", "could not read inbound body", "err", err.Error())
			p.send(chunk{err: errors.Wrap(ErrIO, err.Error())})
			return
		}
	}
}

func (p *Pipe) send(c chunk) bool {
	// Prefer noticing a hang up over filling the free slot.
	select {
	case <-p.closed:
		return false
	default:
	}

	select {
	case p.chunks <- c:
		return true
	case <-p.closed:
		return false
	}
}

// Read implements io.Reader.
func (p *Pipe) Read(b []byte) (int, error) {
	if len(p.cur) == 0 {
		if p.err != nil {
			return 0, p.err
		}
		c, ok := <-p.chunks
		if !ok {
			p.err = io.EOF
			return 0, p.err
		}
		if c.err != nil {
			p.err = c.err
			return 0, p.err
		}
		p.cur = c.b
		atomic.AddInt64(&p.forwarded, int64(len(c.b)))
	}

	n := copy(b, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}

// Close stops the forwarding task. It is safe to call more than once and
// concurrently with Read.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Done is closed once the forwarding task has exited.
func (p *Pipe) Done() <-chan struct{} { return p.done }

// Forwarded reports how many bytes have been handed to the reader.
func (p *Pipe) Forwarded() int64 { return atomic.LoadInt64(&p.forwarded) }

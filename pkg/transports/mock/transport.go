package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ihebkh25/TTS-Project/pkg/protocol"
	"github.com/ihebkh25/TTS-Project/pkg/transports"
)

// Transport is an in-memory transport for tests. Raw messages are scripted
// with Push, and the stream outcome with Finish / Fail; no network involved.
type Transport struct {
	out        chan []byte
	closed     atomic.Bool
	mu         sync.Mutex
	reason     error
	connectErr error
	req        protocol.Request
}

func New() *Transport {
	return &Transport{
		out: make(chan []byte, 256),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Connect(ctx context.Context, req protocol.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	t.req = req
	err := t.connectErr
	t.mu.Unlock()
	return err
}

func (t *Transport) Recv() <-chan []byte { return t.out }

func (t *Transport) CloseErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

func (t *Transport) Close() error {
	t.finish(nil)
	return nil
}

// Push injects one raw inbound message.
func (t *Transport) Push(raw []byte) {
	if t.closed.Load() {
		return
	}
	t.out <- raw
}

// Finish ends the stream as a clean remote close.
func (t *Transport) Finish() {
	t.finish(nil)
}

// Fail ends the stream as an abrupt connection failure.
func (t *Transport) Fail(err error) {
	t.finish(err)
}

// FailConnect makes the next Connect call return err.
func (t *Transport) FailConnect(err error) {
	t.mu.Lock()
	t.connectErr = err
	t.mu.Unlock()
}

// Request exposes the request captured by Connect.
func (t *Transport) Request() protocol.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.req
}

func (t *Transport) finish(err error) {
	if t.closed.CompareAndSwap(false, true) {
		t.mu.Lock()
		t.reason = err
		t.mu.Unlock()
		close(t.out)
	}
}

var _ transports.Transport = (*Transport)(nil)

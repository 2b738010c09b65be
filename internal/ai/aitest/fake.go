// Package aitest provides in-memory fakes of the ai package interfaces.
package aitest

import (
	"context"
	"errors"
	"io"
	"sync"

	"nest/internal/ai"
)

var ErrNotStubbed = errors.New("aitest: call not stubbed")

// Client records requests and delegates to the configured funcs.
type Client struct {
	GenerateFunc       func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error)
	GenerateVideosFunc func(ctx context.Context, req *ai.VideoRequest) (*ai.VideoOperation, error)
	PollVideosFunc     func(ctx context.Context, op *ai.VideoOperation) (*ai.VideoOperation, error)
	StartChatFunc      func(ctx context.Context, cfg ai.ChatConfig) (ai.ChatSession, error)
	ConnectLiveFunc    func(ctx context.Context, cfg ai.LiveConfig) (ai.LiveSession, error)

	mu            sync.Mutex
	requests      []*ai.GenerateRequest
	videoRequests []*ai.VideoRequest
	polls         int
}

func (c *Client) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.GenerateFunc == nil {
		return nil, ErrNotStubbed
	}
	return c.GenerateFunc(ctx, req)
}

func (c *Client) GenerateVideos(ctx context.Context, req *ai.VideoRequest) (*ai.VideoOperation, error) {
	c.mu.Lock()
	c.videoRequests = append(c.videoRequests, req)
	c.mu.Unlock()
	if c.GenerateVideosFunc == nil {
		return nil, ErrNotStubbed
	}
	return c.GenerateVideosFunc(ctx, req)
}

func (c *Client) PollVideos(ctx context.Context, op *ai.VideoOperation) (*ai.VideoOperation, error) {
	c.mu.Lock()
	c.polls++
	c.mu.Unlock()
	if c.PollVideosFunc == nil {
		return nil, ErrNotStubbed
	}
	return c.PollVideosFunc(ctx, op)
}

func (c *Client) StartChat(ctx context.Context, cfg ai.ChatConfig) (ai.ChatSession, error) {
	if c.StartChatFunc == nil {
		return nil, ErrNotStubbed
	}
	return c.StartChatFunc(ctx, cfg)
}

func (c *Client) ConnectLive(ctx context.Context, cfg ai.LiveConfig) (ai.LiveSession, error) {
	if c.ConnectLiveFunc == nil {
		return nil, ErrNotStubbed
	}
	return c.ConnectLiveFunc(ctx, cfg)
}

// Requests returns the generate requests seen so far.
func (c *Client) Requests() []*ai.GenerateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ai.GenerateRequest(nil), c.requests...)
}

func (c *Client) VideoRequests() []*ai.VideoRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ai.VideoRequest(nil), c.videoRequests...)
}

func (c *Client) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// Factory hands out Client and records the credentials it was asked for.
type Factory struct {
	Client ai.Client
	Err    error

	mu   sync.Mutex
	keys []string
}

func (f *Factory) NewClient(_ context.Context, credential string) (ai.Client, error) {
	f.mu.Lock()
	f.keys = append(f.keys, credential)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

func (f *Factory) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// Creds is a fixed credential; "" means not configured.
type Creds string

func (c Creds) Resolve() string { return string(c) }

// Text builds a plain text response.
func Text(s string) *ai.GenerateResponse {
	return &ai.GenerateResponse{Text: s}
}

// ChatFunc is a ChatSession backed by a function.
type ChatFunc func(ctx context.Context, message string) (string, error)

func (f ChatFunc) Send(ctx context.Context, message string) (string, error) { return f(ctx, message) }

// Live is a scripted live session. Tests push server events on Events and
// read uploaded audio from Sent. Closing Events ends Receive with io.EOF.
type Live struct {
	Events chan *ai.LiveEvent
	Sent   chan ai.Blob

	once sync.Once
	done chan struct{}
}

func NewLive() *Live {
	return &Live{
		Events: make(chan *ai.LiveEvent, 16),
		Sent:   make(chan ai.Blob, 64),
		done:   make(chan struct{}),
	}
}

// SendAudio records the chunk; it drops it when Sent is full.
func (l *Live) SendAudio(_ context.Context, chunk ai.Blob) error {
	select {
	case <-l.done:
		return errors.New("aitest: live session closed")
	default:
	}
	select {
	case l.Sent <- chunk:
	default:
	}
	return nil
}

func (l *Live) Receive(ctx context.Context) (*ai.LiveEvent, error) {
	select {
	case <-l.done:
		return nil, errors.New("aitest: live session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-l.Events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	}
}

func (l *Live) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// Closed reports whether Close was called.
func (l *Live) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// README: Text chat keeps one lazily created provider chat session per conversation.
package assistant

import (
	"context"
	"sync"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

const (
	ChatInstruction  = "You are NEST, a helpful family travel assistant. Be concise, friendly, and expert."
	VoiceInstruction = "You are NEST, a cheerful family travel planner. Keep responses helpful and encouraging."
	VoiceName        = "Zephyr"
)

// Chat is one multi-turn conversation. A failed turn leaves the session in
// place so context survives; only Close resets it.
type Chat struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	log     logger.Logger

	mu      sync.Mutex
	session ai.ChatSession
}

func NewChat(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger) *Chat {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Chat{creds: creds, factory: factory, log: log}
}

// Send appends message to the conversation and returns the model's reply.
// Turns are serialized.
func (c *Chat) Send(ctx context.Context, message string) (reply string, err error) {
	const op = "chat"
	start := time.Now()
	defer func() { metrics.ObserveAI(op, start, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		client, _, err := ai.Connect(ctx, c.creds, c.factory, op)
		if err != nil {
			return "", err
		}
		session, err := client.StartChat(ctx, ai.ChatConfig{Model: ai.ModelChat, SystemInstruction: ChatInstruction})
		if err != nil {
			return "", &ai.ProviderError{Op: op, Err: err}
		}
		c.session = session
	}

	reply, err = c.session.Send(ctx, message)
	if err != nil {
		c.log.Warn("chat turn failed", map[string]interface{}{"error": err.Error()})
		return "", &ai.ProviderError{Op: op, Err: err}
	}
	return reply, nil
}

// Active reports whether a provider session exists.
func (c *Chat) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Chat) Close() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// Chats holds one Chat per user.
type Chats struct {
	newChat func() *Chat

	mu    sync.Mutex
	chats map[string]*Chat
}

func NewChats(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger) *Chats {
	return &Chats{
		newChat: func() *Chat { return NewChat(creds, factory, log) },
		chats:   make(map[string]*Chat),
	}
}

// For returns uid's conversation, creating it on first use.
func (r *Chats) For(uid string) *Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[uid]
	if !ok {
		c = r.newChat()
		r.chats[uid] = c
	}
	return c
}

// Close drops uid's conversation.
func (r *Chats) Close(uid string) {
	r.mu.Lock()
	c, ok := r.chats[uid]
	delete(r.chats, uid)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

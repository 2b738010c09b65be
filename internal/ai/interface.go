package ai

import (
	"context"
)

// CredentialProvider yields the provider API key, or "" when none is configured.
type CredentialProvider interface {
	Resolve() string
}

// ClientFactory opens a provider handle for a credential. Implementations must
// not validate the credential eagerly; a bad key surfaces on the first call.
type ClientFactory interface {
	NewClient(ctx context.Context, credential string) (Client, error)
}

// Client is the set of generative primitives the modules depend on.
// Swapping providers means implementing this interface.
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GenerateVideos starts a long-running video job. PollVideos refreshes it.
	GenerateVideos(ctx context.Context, req *VideoRequest) (*VideoOperation, error)
	PollVideos(ctx context.Context, op *VideoOperation) (*VideoOperation, error)

	StartChat(ctx context.Context, cfg ChatConfig) (ChatSession, error)
	ConnectLive(ctx context.Context, cfg LiveConfig) (LiveSession, error)
}

// ChatSession keeps multi-turn history on the provider side.
type ChatSession interface {
	Send(ctx context.Context, message string) (string, error)
}

// LiveSession is a duplex audio channel.
type LiveSession interface {
	SendAudio(ctx context.Context, chunk Blob) error
	// Receive blocks until the next server event. It returns an error once
	// the channel is closed.
	Receive(ctx context.Context) (*LiveEvent, error)
	Close() error
}

// Connect resolves the credential and opens a client for op.
// It returns ConfigurationError when no credential is available.
func Connect(ctx context.Context, creds CredentialProvider, factory ClientFactory, op string) (Client, string, error) {
	key := ""
	if creds != nil {
		key = creds.Resolve()
	}
	if key == "" {
		return nil, "", &ConfigurationError{Op: op}
	}
	client, err := factory.NewClient(ctx, key)
	if err != nil {
		return nil, "", &ProviderError{Op: op, Err: err}
	}
	return client, key, nil
}

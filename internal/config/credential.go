// README: Ordered API-credential sources for the generative provider.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// CredentialSource yields a credential or "" when it has none.
type CredentialSource interface {
	Name() string
	Lookup() string
}

// EnvSource reads one process environment variable.
type EnvSource struct {
	Key    string
	getenv func(string) string
}

func Env(key string) EnvSource {
	return EnvSource{Key: key, getenv: os.Getenv}
}

func (s EnvSource) Name() string { return "env:" + s.Key }

func (s EnvSource) Lookup() string {
	get := s.getenv
	if get == nil {
		get = os.Getenv
	}
	return strings.TrimSpace(get(s.Key))
}

// DotEnvSource reads keys from a .env file without touching the process
// environment. The first non-empty key wins.
type DotEnvSource struct {
	Path string
	Keys []string
}

func (s DotEnvSource) Name() string { return "dotenv:" + s.Path }

func (s DotEnvSource) Lookup() string {
	if s.Path == "" {
		return ""
	}
	vals, err := godotenv.Read(s.Path)
	if err != nil {
		return ""
	}
	for _, k := range s.Keys {
		if v := strings.TrimSpace(vals[k]); v != "" {
			return v
		}
	}
	return ""
}

// StaticSource is a fixed value, mostly for tests and the CLI --api-key flag.
type StaticSource string

func (s StaticSource) Name() string   { return "static" }
func (s StaticSource) Lookup() string { return strings.TrimSpace(string(s)) }

// Credentials resolves the provider API key from its sources in order.
// A key installed through Select takes precedence over every source.
type Credentials struct {
	mu       sync.RWMutex
	sources  []CredentialSource
	selected string
}

func NewCredentials(sources ...CredentialSource) *Credentials {
	return &Credentials{sources: sources}
}

// DefaultCredentials checks API_KEY, then GEMINI_API_KEY, then the
// VITE_API_KEY / API_KEY entries of envFile.
func DefaultCredentials(envFile string) *Credentials {
	return NewCredentials(
		Env("API_KEY"),
		Env("GEMINI_API_KEY"),
		DotEnvSource{Path: envFile, Keys: []string{"VITE_API_KEY", "API_KEY"}},
	)
}

// Resolve returns the first non-empty credential, or "" when none is configured.
func (c *Credentials) Resolve() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	selected := c.selected
	c.mu.RUnlock()
	if selected != "" {
		return selected
	}
	for _, s := range c.sources {
		if v := s.Lookup(); v != "" {
			return v
		}
	}
	return ""
}

// Select installs key ahead of every source.
func (c *Credentials) Select(key string) {
	c.mu.Lock()
	c.selected = strings.TrimSpace(key)
	c.mu.Unlock()
}

func (c *Credentials) HasSelected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected != ""
}

// KeyFileSelector rotates the credential from a file an operator maintains.
// It backs the video teaser's key-selection hook on the server.
type KeyFileSelector struct {
	Path  string
	Creds *Credentials
}

func (s *KeyFileSelector) HasSelectedKey(_ context.Context) (bool, error) {
	return s.Creds.HasSelected(), nil
}

func (s *KeyFileSelector) SelectKey(_ context.Context) error {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return fmt.Errorf("key file %s is empty", s.Path)
	}
	s.Creds.Select(key)
	return nil
}

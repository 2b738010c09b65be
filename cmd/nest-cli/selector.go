package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"nest/internal/config"
	"nest/internal/modules/media"
)

var _ media.KeySelector = (*stdinSelector)(nil)

// stdinSelector asks the operator for a key with video-model access.
type stdinSelector struct {
	creds *config.Credentials
	in    io.Reader
	out   io.Writer
}

func (s *stdinSelector) HasSelectedKey(context.Context) (bool, error) {
	return s.creds.HasSelected(), nil
}

func (s *stdinSelector) SelectKey(context.Context) error {
	fmt.Fprint(s.out, "Video generation needs a key with Veo access. Paste one: ")
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return errors.New("no key entered")
	}
	s.creds.Select(key)
	return nil
}

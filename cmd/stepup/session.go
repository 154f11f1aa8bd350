package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sessionFile stores the session token between invocations. It implements
// stepup.SessionProvider.
type sessionFile struct {
	path string
}

func (s *sessionFile) SessionToken(context.Context) (string, bool) {
	token, err := s.read()
	return token, err == nil && token != ""
}

func (s *sessionFile) read() (string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.New("not signed in, run stepup login first")
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *sessionFile) write(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0o600)
}

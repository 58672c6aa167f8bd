package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/api"
)

// SessionStore keeps the token pair between CLI invocations.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the stored tokens. A missing file is an empty session.
func (s *SessionStore) Load() (api.Tokens, error) {
	var t api.Tokens

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse session %s: %w", s.path, err)
	}
	return t, nil
}

// Save writes t readable by the owner only. Empty tokens remove the file.
func (s *SessionStore) Save(t api.Tokens) error {
	if t == (api.Tokens{}) {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

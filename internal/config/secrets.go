package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const apiTokenAccount = "api_token"

// ErrSecretNotFound is returned when the secrets file has no such account.
var ErrSecretNotFound = errors.New("secret not found")

func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

// fileSecrets keeps secrets in a 0600 JSON object outside the config file.
type fileSecrets struct {
	path string
}

func (s fileSecrets) read() (map[string]string, error) {
	secrets := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return secrets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (s fileSecrets) Get(account string) (string, error) {
	secrets, err := s.read()
	if err != nil {
		return "", err
	}
	val, ok := secrets[account]
	if !ok || val == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, account)
	}
	return val, nil
}

func (s fileSecrets) Set(account, value string) error {
	secrets, err := s.read()
	if err != nil {
		return err
	}
	secrets[account] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, out, 0o600)
}

func ensureToken(s secretStore) (string, error) {
	token, err := s.Get(apiTokenAccount)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, ErrSecretNotFound) {
		return "", fmt.Errorf("loading API token: %w", err)
	}
	token = uuid.NewString()
	if err := s.Set(apiTokenAccount, token); err != nil {
		return "", fmt.Errorf("saving API token: %w", err)
	}
	return token, nil
}

// RotateAPIToken replaces the stored API token and returns the new value.
// A running server keeps the old token until restarted.
func RotateAPIToken() (string, error) {
	return rotateToken(fileSecrets{path: secretsFilePath()})
}

func rotateToken(s secretStore) (string, error) {
	token := uuid.NewString()
	if err := s.Set(apiTokenAccount, token); err != nil {
		return "", fmt.Errorf("saving API token: %w", err)
	}
	return token, nil
}

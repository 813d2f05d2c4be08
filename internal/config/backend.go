package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// ConfigBackend abstracts where persisted settings live.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// fileBackend stores settings as nested JSON ({"server":{"port":4100}}).
type fileBackend struct {
	path string
	v    *viper.Viper
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, v: newViper(path)}
	b.load()
	return b
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

func (b *fileBackend) load() {
	if err := b.v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(b.path); os.IsNotExist(statErr) {
			return
		}
		fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
	}
}

func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := b.v.WriteConfigAs(b.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return os.Chmod(b.path, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	if !b.v.IsSet(key) {
		return "", false, nil
	}
	return fmt.Sprint(b.v.Get(key)), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	if !b.v.IsSet(key) {
		return 0, false, nil
	}
	raw := fmt.Sprint(b.v.Get(key))
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %q", key, raw)
	}
	return i, true, nil
}

func (b *fileBackend) SetString(key, val string) error {
	b.v.Set(key, val)
	return b.save()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.v.Set(key, val)
	return b.save()
}

// Delete removes key. Viper cannot unset a value, so the remaining settings
// are copied into a fresh instance.
func (b *fileBackend) Delete(key string) error {
	settings := b.v.AllSettings()
	deleteNested(settings, strings.Split(strings.ToLower(key), "."))

	v := newViper(b.path)
	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("rebuilding config: %w", err)
	}
	b.v = v
	return b.save()
}

func deleteNested(m map[string]any, path []string) {
	if len(path) == 1 {
		delete(m, path[0])
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		return
	}
	deleteNested(child, path[1:])
	if len(child) == 0 {
		delete(m, path[0])
	}
}

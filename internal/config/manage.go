package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string `json:"key"`
	EnvVar string `json:"envVar"`
	Value  string `json:"value"`
}

// ShowAll returns all non-secret config key/value pairs from cfg.
func ShowAll(cfg Config) []KeyInfo {
	return lo.FilterMap(specs, func(s keySpec, _ int) (KeyInfo, bool) {
		return KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		}, !s.secret
	})
}

// SetKey writes a config key to the config file.
func SetKey(key, value string) error {
	return setKey(newFileBackend(configFilePath()), key, value)
}

// UnsetKey removes a config key from the config file so its default applies.
func UnsetKey(key string) error {
	return unsetKey(newFileBackend(configFilePath()), key)
}

func lookupSpec(key string) (keySpec, error) {
	s, ok := lo.Find(specs, func(s keySpec) bool { return s.key == key })
	if !ok {
		return keySpec{}, fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return keySpec{}, fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
	}
	return s, nil
}

func setKey(b ConfigBackend, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	case kDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
	}
	return b.SetString(key, value)
}

func unsetKey(b ConfigBackend, key string) error {
	if _, err := lookupSpec(key); err != nil {
		return err
	}
	return b.Delete(key)
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	return lo.FilterMap(specs, func(s keySpec, _ int) (string, bool) {
		return s.key, !s.secret
	})
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoToken is returned when the fog file holds no token for the provider.
var ErrNoToken = errors.New("no token in fog file")

// FogFile is the fog credentials file shared with other Puppet tooling.
// Keys are written the way Ruby serialises symbols:
//
//	:default:
//	  :abs_token: <token>
type FogFile struct {
	Path string
}

// Token returns the "<provider>_token" entry of the default credential set.
// Keys are accepted with or without the leading colon.
func (f FogFile) Token(provider string) (string, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("cannot find fog file at %s", f.Path)
	}
	if err != nil {
		return "", fmt.Errorf("reading fog file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("parsing fog file %s: %w", f.Path, err)
	}
	section, _ := lookup(raw, "default").(map[string]any)
	token, _ := lookup(section, provider+"_token").(string)
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%s: %w for %s", f.Path, ErrNoToken, provider)
	}
	return token, nil
}

// SaveToken stores token for provider, keeping any other entries in the file.
func (f FogFile) SaveToken(provider, token string) error {
	raw := map[string]any{}
	data, err := os.ReadFile(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading fog file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing fog file %s: %w", f.Path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	sectionKey := existingKey(raw, "default")
	section, _ := raw[sectionKey].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	section[existingKey(section, provider+"_token")] = token
	raw[sectionKey] = section

	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return err
	}
	out, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, out, 0600)
}

func lookup(m map[string]any, key string) any {
	if v, ok := m[":"+key]; ok {
		return v
	}
	return m[key]
}

// existingKey returns the spelling of key already used in m, preferring the
// symbol form for new entries.
func existingKey(m map[string]any, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	return ":" + key
}

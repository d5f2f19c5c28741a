// Package secrets resolves credentials such as the Gemini API key and the
// NATS token from inline config values or mounted files.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNotConfigured = errors.New("not configured")

// Source names a credential and where it may come from. File wins over Value.
type Source struct {
	Name  string
	Value string
	File  string
}

func (s Source) name() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return "secret"
}

// Load returns the trimmed credential or an error when it is missing or empty.
func Load(src Source) (string, error) {
	secret, err := LoadOptional(src)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%s is %w", src.name(), ErrNotConfigured)
	}
	return secret, nil
}

// LoadOptional is Load for credentials that may be absent: it returns ""
// when neither a file nor a value is set. A configured but empty file is
// still an error.
func LoadOptional(src Source) (string, error) {
	file := strings.TrimSpace(src.File)
	if file == "" {
		return strings.TrimSpace(src.Value), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", src.name(), file, err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s file %q is empty", src.name(), file)
	}
	return secret, nil
}

package cryptox

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretSource records where a resolved secret came from.
type SecretSource string

const (
	SecretFromValue     SecretSource = "value"
	SecretFromFile      SecretSource = "file"
	SecretFromGenerated SecretSource = "generated"
)

// Secret is a resolved signing secret.
type Secret struct {
	Bytes  []byte
	Source SecretSource
}

// Ephemeral reports whether the secret only lives for this process. Anything
// signed with it stops verifying after a restart.
func (s Secret) Ephemeral() bool { return s.Source == SecretFromGenerated }

// ResolveSecret picks a secret from an inline value, then a file, and falls
// back to size random bytes. Inline values and file contents are used as raw
// bytes after trimming whitespace; decode them yourself if they are encoded.
func ResolveSecret(value, file string, size int) (Secret, error) {
	if v := strings.TrimSpace(value); v != "" {
		return Secret{Bytes: []byte(v), Source: SecretFromValue}, nil
	}

	if file != "" {
		b, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return Secret{}, fmt.Errorf("read secret file: %w", err)
		}
		v := strings.TrimSpace(string(b))
		if v == "" {
			return Secret{}, fmt.Errorf("secret file %s is empty", file)
		}
		return Secret{Bytes: []byte(v), Source: SecretFromFile}, nil
	}

	tok, err := GenerateToken(size)
	if err != nil {
		return Secret{}, err
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Bytes: raw, Source: SecretFromGenerated}, nil
}

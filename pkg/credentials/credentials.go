// Package credentials resolves API tokens from the environment or from a
// sops-encrypted env file.
package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/neteng-tools/popctl/pkg/util"
)

// ErrCredentialNotFound is returned when no source holds the requested key.
var ErrCredentialNotFound = errors.New("credential not found")

// EnvFile is a parsed KEY=VALUE file.
type EnvFile map[string]string

// ParseEnvFile parses KEY=VALUE lines. Blank lines and lines starting with
// # are skipped, an optional "export " prefix is dropped, and values may be
// wrapped in single or double quotes.
func ParseEnvFile(data []byte) (EnvFile, error) {
	env := make(EnvFile)
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE", n)
		}
		env[key] = unquote(strings.TrimSpace(val))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return env, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Lookup returns the value for key or ErrCredentialNotFound.
func (e EnvFile) Lookup(key string) (string, error) {
	v, ok := e[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrCredentialNotFound)
	}
	return v, nil
}

// Decrypter turns an encrypted file into plaintext.
type Decrypter interface {
	Decrypt(ctx context.Context, path string) ([]byte, error)
}

// Sops decrypts with the sops binary.
type Sops struct {
	// Binary defaults to "sops".
	Binary string
}

func (s Sops) Decrypt(ctx context.Context, path string) ([]byte, error) {
	bin := s.Binary
	if bin == "" {
		bin = "sops"
	}
	util.WithField("file", path).Debugf("%s -d", bin)

	cmd := exec.CommandContext(ctx, bin, "-d", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s -d %s: %w: %s", bin, path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Source looks a token up in the named environment variable first, then in
// an encrypted env file under SecretKey.
type Source struct {
	EnvVar      string
	SecretsFile string
	SecretKey   string
	Decrypter   Decrypter

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Resolve returns the first non-empty token.
func (s Source) Resolve(ctx context.Context) (string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if s.EnvVar != "" {
		if v := getenv(s.EnvVar); v != "" {
			return v, nil
		}
	}
	if s.SecretsFile == "" || s.SecretKey == "" {
		return "", fmt.Errorf("%s not set: %w", s.EnvVar, ErrCredentialNotFound)
	}

	dec := s.Decrypter
	if dec == nil {
		dec = Sops{}
	}
	data, err := dec.Decrypt(ctx, s.SecretsFile)
	if err != nil {
		return "", err
	}
	env, err := ParseEnvFile(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.SecretsFile, err)
	}
	return env.Lookup(s.SecretKey)
}

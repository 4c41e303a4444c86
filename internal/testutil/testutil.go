//go:build e2e

// Package testutil provides helpers for e2e tests that run against a live
// NetBox and billboard. Tests skip unless the environment names a server to
// read from:
//
//	POPCTL_E2E_SERVER   POP server to query, e.g. sub-mad01-data01
//	NETBOX_TOKEN        NetBox API token
//	BILLBOARD_API_TOKEN billboard token (or billboard.secrets_file in settings)
//
// Every helper is read-only; no test executes a billboard write command.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/credentials"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/settings"
)

// Server returns the POP server under test or skips the test.
func Server(t *testing.T) string {
	t.Helper()
	s := os.Getenv("POPCTL_E2E_SERVER")
	if s == "" {
		t.Skip("POPCTL_E2E_SERVER not set")
	}
	return s
}

// Settings loads the operator's settings, or the file named by
// POPCTL_E2E_CONFIG.
func Settings(t *testing.T) *settings.Settings {
	t.Helper()
	path := os.Getenv("POPCTL_E2E_CONFIG")
	if path == "" {
		path = settings.DefaultSettingsPath()
	}
	s, err := settings.LoadFrom(path)
	if err != nil {
		t.Fatalf("loading settings %s: %v", path, err)
	}
	return s
}

// NetBoxClient returns a client for the configured NetBox or skips the test
// when no token is set.
func NetBoxClient(t *testing.T) *netbox.Client {
	t.Helper()
	s := Settings(t)
	token := os.Getenv(s.NetBox.TokenEnv)
	if token == "" {
		t.Skipf("%s not set", s.NetBox.TokenEnv)
	}
	return netbox.NewClient(netbox.Config{URL: s.NetBox.URL, Token: token, Timeout: s.NetBox.Timeout})
}

// BillboardRunner returns a runner for the configured environment or skips
// the test when the binary or a token is missing.
func BillboardRunner(t *testing.T) *billboard.Runner {
	t.Helper()
	s := Settings(t)
	if _, err := exec.LookPath(s.Billboard.Binary); err != nil {
		t.Skipf("billboard binary %q not found", s.Billboard.Binary)
	}
	token, err := credentials.Source{
		EnvVar:      s.Billboard.TokenEnv,
		SecretsFile: s.Billboard.SecretsFile,
		SecretKey:   s.SecretKey(),
	}.Resolve(Context(t))
	if err != nil {
		t.Skipf("billboard token: %v", err)
	}
	host, port := s.BillboardHost()
	return billboard.NewRunner(billboard.Config{
		Binary:   s.Billboard.Binary,
		Host:     host,
		Port:     port,
		TokenEnv: s.Billboard.TokenEnv,
		Token:    token,
		User:     "e2e",
	})
}

// ProjectRoot returns the absolute path to the project root.
func ProjectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Must is a generic helper that calls t.Fatal if err is not nil and returns the value.
func Must[T any](t *testing.T, val T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return val
}

package ifcheck

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/neteng-tools/popctl/pkg/util"
)

// SSHConfig holds the login for SSHHost. Key file wins over password.
type SSHConfig struct {
	User     string
	KeyFile  string
	Password string
	Timeout  time.Duration
}

// SSHHost runs commands on a server over one SSH connection. Each Run opens
// its own session, so it is safe for concurrent use.
type SSHHost struct {
	addr   string
	client *ssh.Client
}

// DialSSH connects to addr (host:port).
func DialSSH(addr string, cfg SSHConfig) (*SSHHost, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH connect to %s: %w", addr, err)
	}
	return &SSHHost{addr: addr, client: client}, nil
}

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyFile, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}
	return nil, util.NewValidationError("SSH needs a key file or a password")
}

// Run executes cmd and returns stdout without the trailing newline. Closing
// ctx closes the session.
func (h *SSHHost) Run(ctx context.Context, cmd string) (string, error) {
	session, err := h.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session to %s: %w", h.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	util.WithOperation("ssh").WithField("device", h.addr).Debugf("run: %s", cmd)

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return stdout.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// Close closes the SSH connection.
func (h *SSHHost) Close() error {
	return h.client.Close()
}

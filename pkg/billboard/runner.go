package billboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/neteng-tools/popctl/pkg/audit"
	"github.com/neteng-tools/popctl/pkg/util"
)

// Executor starts a process and returns its captured output.
type Executor interface {
	Execute(ctx context.Context, name string, args, env []string, stdin string) (stdout, stderr string, err error)
}

// ExecExecutor runs processes with os/exec. env is appended to the current
// process environment.
type ExecExecutor struct{}

func (ExecExecutor) Execute(ctx context.Context, name string, args, env []string, stdin string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Config selects the billboard binary, endpoint and credentials.
type Config struct {
	Binary   string
	Host     string
	Port     int // 0 omits --port
	TokenEnv string
	Token    string
	User     string // recorded in audit events
}

// Result is the captured output of one invocation.
type Result struct {
	Command  Command
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner runs billboard commands. It is safe for concurrent use.
type Runner struct {
	cfg   Config
	exec  Executor
	audit audit.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the os/exec executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithAuditLogger records every non-query command.
func WithAuditLogger(l audit.Logger) Option {
	return func(r *Runner) { r.audit = l }
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, opts ...Option) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = "billboard"
	}
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = "BILLBOARD_API_TOKEN"
	}
	r := &Runner{
		cfg:   cfg,
		exec:  ExecExecutor{},
		audit: audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) globalArgs() []string {
	var args []string
	if r.cfg.Host != "" {
		args = append(args, "--host", r.cfg.Host)
	}
	if r.cfg.Port != 0 {
		args = append(args, "--port", strconv.Itoa(r.cfg.Port))
	}
	return args
}

// Argv returns the full argument list, global flags first.
func (r *Runner) Argv(cmd Command) []string {
	return append(r.globalArgs(), cmd.Argv()...)
}

// CommandLine renders what Run executes, binary and global flags included,
// in display form so it can be pasted into a shell.
func (r *Runner) CommandLine(cmd Command) string {
	parts := append([]string{r.cfg.Binary}, r.globalArgs()...)
	return strings.Join(append(parts, cmd...), " ")
}

// Run executes cmd, answering billboard's confirmation prompt with "y".
// A non-zero exit returns a *CommandError; the partial Result is still
// returned.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	var env []string
	if r.cfg.Token != "" {
		env = append(env, r.cfg.TokenEnv+"="+r.cfg.Token)
	}

	log := util.WithOperation(cmd.Operation()).WithField("device", cmd.Target())
	log.Debugf("billboard %s", cmd)

	start := time.Now()
	stdout, stderr, err := r.exec.Execute(ctx, r.cfg.Binary, r.Argv(cmd), env, "y\n")
	res := &Result{Command: cmd, Stdout: stdout, Stderr: stderr, Duration: time.Since(start)}
	if err != nil {
		err = &CommandError{Command: cmd, Stderr: stderr, Err: err}
		log.Debugf("billboard failed: %v", err)
	}

	if !cmd.IsQuery() {
		event := audit.NewEvent(r.cfg.User, cmd.Target(), cmd.Operation()).
			WithCommand(cmd).
			WithOutput(strings.TrimSpace(stdout)).
			WithDuration(res.Duration).
			WithExecuteMode(true)
		if err != nil {
			event.WithError(err)
		} else {
			event.WithSuccess()
		}
		if aerr := r.audit.Log(event); aerr != nil {
			util.Warnf("audit: %v", aerr)
		}
	}
	return res, err
}

// GetPaths runs get path and parses the result. Empty output is ErrNoOutput.
func (r *Runner) GetPaths(ctx context.Context, q PathQuery) ([]PathRecord, error) {
	res, err := r.Run(ctx, FormatGetPathCommand(q))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("get path hostname=%s: %w", q.Hostname, ErrNoOutput)
	}
	return ParsePaths(res.Stdout)
}

// GetPeers runs get peer and parses the result.
func (r *Runner) GetPeers(ctx context.Context, hostname string) ([]PeerRecord, error) {
	res, err := r.Run(ctx, FormatGetPeerCommand(hostname))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("get peer hostname=%s: %w", hostname, ErrNoOutput)
	}
	return ParsePeers(res.Stdout)
}

// IsQuery reports whether the command only reads state.
func (c Command) IsQuery() bool {
	return len(c) > 0 && c[0] == "get"
}

// Operation names the command for logs and audit, e.g. "path.announce",
// "peer.drain".
func (c Command) Operation() string {
	if len(c) == 0 {
		return ""
	}
	switch c[0] {
	case "announce", "withdraw":
		return "path." + c[0]
	case "update", "get", "drain", "undrain":
		if len(c) > 1 {
			return c[1] + "." + c[0]
		}
	}
	return c[0]
}

// Target returns the hostname the command acts on.
func (c Command) Target() string {
	for _, tok := range c {
		if v, ok := strings.CutPrefix(tok, "hostname="); ok {
			return v
		}
	}
	switch {
	case len(c) > 1 && (c[0] == "announce" || c[0] == "withdraw"):
		return c[1]
	case len(c) > 2 && (c[0] == "update" || c[0] == "drain" || c[0] == "undrain"):
		return c[2]
	}
	return ""
}

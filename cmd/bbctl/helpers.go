package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"sort"
	"strings"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/credentials"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/util"
)

// newRunner builds the billboard runner for the selected environment. A
// missing token is only a warning: billboard may have its own login.
func newRunner(ctx context.Context) (*billboard.Runner, error) {
	src := credentials.Source{
		EnvVar:      userSettings.Billboard.TokenEnv,
		SecretsFile: userSettings.Billboard.SecretsFile,
		SecretKey:   userSettings.SecretKey(),
	}
	token, err := src.Resolve(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrCredentialNotFound) {
			return nil, fmt.Errorf("billboard token: %w", err)
		}
		util.Warnf("no billboard token: %v", err)
	}

	host, port := userSettings.BillboardHost()
	util.WithField("environment", userSettings.Environment).Debugf("billboard host %s", host)
	return billboard.NewRunner(billboard.Config{
		Binary:   userSettings.Billboard.Binary,
		Host:     host,
		Port:     port,
		TokenEnv: userSettings.Billboard.TokenEnv,
		Token:    token,
		User:     currentUser(),
	}, billboard.WithAuditLogger(auditLogger)), nil
}

func newNetBox(ctx context.Context) (*netbox.Client, error) {
	token, err := credentials.Source{EnvVar: userSettings.NetBox.TokenEnv}.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("netbox token: %w", err)
	}
	return netbox.NewClient(netbox.Config{
		URL:     userSettings.NetBox.URL,
		Token:   token,
		Timeout: userSettings.NetBox.Timeout,
	}), nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// commandRunner is the part of *billboard.Runner applyCommands needs.
type commandRunner interface {
	Run(ctx context.Context, cmd billboard.Command) (*billboard.Result, error)
	CommandLine(cmd billboard.Command) string
}

// applyCommands prints cmds and, in execute mode, runs them in order. A
// failed command does not stop the rest. The preview shows each command
// exactly as it would be run, environment flags included.
func applyCommands(ctx context.Context, w io.Writer, r commandRunner, cmds []billboard.Command, execute bool) error {
	if len(cmds) == 0 {
		fmt.Fprintln(w, "Nothing to do.")
		return nil
	}

	if !execute {
		for _, c := range cmds {
			fmt.Fprintln(w, r.CommandLine(c))
		}
		fmt.Fprintln(w, "\n"+yellow("PREVIEW: No changes applied. Use -x to execute."))
		return nil
	}

	var failed int
	for _, c := range cmds {
		res, err := r.Run(ctx, c)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s %s\n", red("FAILED"), c)
			fmt.Fprintf(w, "  %v\n", err)
			continue
		}
		util.WithOperation(c.Operation()).Infof("billboard %s done in %s", c, res.Duration)
		fmt.Fprintf(w, "%s %s\n", green("OK"), c)
		if out := strings.TrimSpace(res.Stdout); out != "" && verbose {
			fmt.Fprintln(w, "  "+strings.ReplaceAll(out, "\n", "\n  "))
		}
	}
	util.Infof("applied %d of %d billboard commands", len(cmds)-failed, len(cmds))
	if failed > 0 {
		return fmt.Errorf("%d of %d billboard commands failed", failed, len(cmds))
	}
	fmt.Fprintln(w, "\n"+green("Changes applied successfully."))
	return nil
}

// pathTypes merges the -p/-m shorthands with a -t list.
func pathTypes(csv string, prod, monitor bool) ([]billboard.PathType, error) {
	var types []billboard.PathType
	if csv != "" {
		parsed, err := billboard.ParsePathTypes(csv)
		if err != nil {
			return nil, err
		}
		types = parsed
	}
	if prod && !billboard.ContainsPathType(types, billboard.PathProdGlobal) {
		types = append(types, billboard.PathProdGlobal)
	}
	if monitor && !billboard.ContainsPathType(types, billboard.PathMonitor) {
		types = append(types, billboard.PathMonitor)
	}
	if len(types) == 0 {
		return nil, util.NewValidationError("at least one path type is required: use -t, -p or -m")
	}
	return types, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinCommand(argv []string) string {
	return util.Truncate(strings.Join(argv, " "), 80)
}

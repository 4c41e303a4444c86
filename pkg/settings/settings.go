// Package settings manages the persistent popctl configuration file.
package settings

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neteng-tools/popctl/pkg/util"
)

// Environments selectable with --env.
const (
	EnvProd  = "prod"
	EnvAlpha = "alpha"
	EnvLocal = "local"
)

// Settings holds the operator's configuration.
type Settings struct {
	// Environment selects the billboard endpoint: prod, alpha or local.
	Environment string `yaml:"environment,omitempty"`

	Billboard BillboardSettings `yaml:"billboard"`
	NetBox    NetBoxSettings    `yaml:"netbox"`
	SSH       SSHSettings       `yaml:"ssh"`
	Audit     AuditSettings     `yaml:"audit"`
	Policy    PolicySettings    `yaml:"policy"`
}

type BillboardSettings struct {
	Binary    string `yaml:"binary,omitempty"`
	ProdHost  string `yaml:"prod_host,omitempty"`
	AlphaHost string `yaml:"alpha_host,omitempty"`
	LocalHost string `yaml:"local_host,omitempty"`
	LocalPort int    `yaml:"local_port,omitempty"`
	TokenEnv  string `yaml:"token_env,omitempty"`

	// SecretsFile is a sops-encrypted env file holding BILLBOARD_API_PROD
	// and BILLBOARD_API_ALPHA.
	SecretsFile string `yaml:"secrets_file,omitempty"`
}

type NetBoxSettings struct {
	URL      string        `yaml:"url,omitempty"`
	TokenEnv string        `yaml:"token_env,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

type SSHSettings struct {
	User         string        `yaml:"user,omitempty"`
	KeyFile      string        `yaml:"key_file,omitempty"`
	DomainSuffix string        `yaml:"domain_suffix,omitempty"`
	Port         int           `yaml:"port,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
}

type AuditSettings struct {
	Path       string `yaml:"path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// PolicySettings locates the community policy files. An empty Dir means
// neteng/policy under the current git checkout.
type PolicySettings struct {
	Dir string `yaml:"dir,omitempty"`
}

// Default returns settings with every field at its default.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	setString(&s.Environment, EnvProd)

	setString(&s.Billboard.Binary, "billboard")
	setString(&s.Billboard.ProdHost, "billboard.subspace.com")
	setString(&s.Billboard.AlphaHost, "billboard.subspace-alpha.com")
	setString(&s.Billboard.LocalHost, "localhost")
	if s.Billboard.LocalPort == 0 {
		s.Billboard.LocalPort = 55010
	}
	setString(&s.Billboard.TokenEnv, "BILLBOARD_API_TOKEN")

	setString(&s.NetBox.URL, "https://netbox.global.ftlprod.net/api/")
	setString(&s.NetBox.TokenEnv, "NETBOX_TOKEN")
	if s.NetBox.Timeout == 0 {
		s.NetBox.Timeout = 30 * time.Second
	}

	setString(&s.SSH.DomainSuffix, ".pop.ftlprod.net")
	if s.SSH.Port == 0 {
		s.SSH.Port = 22
	}
	if s.SSH.Timeout == 0 {
		s.SSH.Timeout = 10 * time.Second
	}

	setString(&s.Audit.Path, filepath.Join(configDir(), "audit.log"))
	if s.Audit.MaxSizeMB == 0 {
		s.Audit.MaxSizeMB = 10
	}
	if s.Audit.MaxBackups == 0 {
		s.Audit.MaxBackups = 5
	}
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".popctl"
	}
	return filepath.Join(home, ".popctl")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// defaults.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	s.applyDefaults()
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = *Default()
}

// Validate reports every invalid field at once.
func (s *Settings) Validate() error {
	vb := &util.ValidationBuilder{}

	switch s.Environment {
	case EnvProd, EnvAlpha, EnvLocal:
	default:
		vb.AddErrorf("environment %q must be one of prod, alpha, local", s.Environment)
	}
	vb.Add(s.Billboard.Binary != "", "billboard.binary is required")
	vb.Add(s.Billboard.LocalPort > 0 && s.Billboard.LocalPort < 65536,
		fmt.Sprintf("billboard.local_port %d out of range", s.Billboard.LocalPort))

	if u, err := url.Parse(s.NetBox.URL); err != nil || u.Scheme == "" || u.Host == "" {
		vb.AddErrorf("netbox.url %q is not an absolute URL", s.NetBox.URL)
	}
	vb.Add(s.SSH.Port > 0 && s.SSH.Port < 65536, fmt.Sprintf("ssh.port %d out of range", s.SSH.Port))
	vb.Add(s.NetBox.Timeout >= 0, "netbox.timeout must not be negative")
	vb.Add(s.SSH.Timeout >= 0, "ssh.timeout must not be negative")

	return vb.Build()
}

// BillboardHost returns the host and port for the current environment. Port
// is 0 outside the local environment.
func (s *Settings) BillboardHost() (string, int) {
	switch s.Environment {
	case EnvAlpha:
		return s.Billboard.AlphaHost, 0
	case EnvLocal:
		return s.Billboard.LocalHost, s.Billboard.LocalPort
	default:
		return s.Billboard.ProdHost, 0
	}
}

// SecretKey names the key holding the billboard token in SecretsFile.
func (s *Settings) SecretKey() string {
	if s.Environment == EnvAlpha {
		return "BILLBOARD_API_ALPHA"
	}
	return "BILLBOARD_API_PROD"
}

// SSHAddress returns host:port for a POP server name, appending the domain
// suffix to short names.
func (s *Settings) SSHAddress(server string) string {
	host := server
	if !strings.Contains(host, ".") {
		host += s.SSH.DomainSuffix
	}
	return host + ":" + strconv.Itoa(s.SSH.Port)
}

type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

func intField(p func(*Settings) *int) field {
	return field{
		get: func(s *Settings) string { return strconv.Itoa(*p(s)) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer %q", v)
			}
			*p(s) = n
			return nil
		},
	}
}

func durationField(p func(*Settings) *time.Duration) field {
	return field{
		get: func(s *Settings) string { return p(s).String() },
		set: func(s *Settings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration %q", v)
			}
			*p(s) = d
			return nil
		},
	}
}

var fields = map[string]field{
	"environment":            stringField(func(s *Settings) *string { return &s.Environment }),
	"billboard.binary":       stringField(func(s *Settings) *string { return &s.Billboard.Binary }),
	"billboard.prod_host":    stringField(func(s *Settings) *string { return &s.Billboard.ProdHost }),
	"billboard.alpha_host":   stringField(func(s *Settings) *string { return &s.Billboard.AlphaHost }),
	"billboard.local_host":   stringField(func(s *Settings) *string { return &s.Billboard.LocalHost }),
	"billboard.local_port":   intField(func(s *Settings) *int { return &s.Billboard.LocalPort }),
	"billboard.token_env":    stringField(func(s *Settings) *string { return &s.Billboard.TokenEnv }),
	"billboard.secrets_file": stringField(func(s *Settings) *string { return &s.Billboard.SecretsFile }),
	"netbox.url":             stringField(func(s *Settings) *string { return &s.NetBox.URL }),
	"netbox.token_env":       stringField(func(s *Settings) *string { return &s.NetBox.TokenEnv }),
	"netbox.timeout":         durationField(func(s *Settings) *time.Duration { return &s.NetBox.Timeout }),
	"ssh.user":               stringField(func(s *Settings) *string { return &s.SSH.User }),
	"ssh.key_file":           stringField(func(s *Settings) *string { return &s.SSH.KeyFile }),
	"ssh.domain_suffix":      stringField(func(s *Settings) *string { return &s.SSH.DomainSuffix }),
	"ssh.port":               intField(func(s *Settings) *int { return &s.SSH.Port }),
	"ssh.timeout":            durationField(func(s *Settings) *time.Duration { return &s.SSH.Timeout }),
	"audit.path":             stringField(func(s *Settings) *string { return &s.Audit.Path }),
	"audit.max_size_mb":      intField(func(s *Settings) *int { return &s.Audit.MaxSizeMB }),
	"audit.max_backups":      intField(func(s *Settings) *int { return &s.Audit.MaxBackups }),
	"policy.dir":             stringField(func(s *Settings) *string { return &s.Policy.Dir }),
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a dotted key such as "netbox.url".
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q: %w", key, util.ErrInvalidConfig)
	}
	return f.get(s), nil
}

// Set assigns a dotted key from its string form and revalidates.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, util.ErrInvalidConfig)
	}
	prev := *s
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		*s = prev
		return err
	}
	return nil
}

package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
)

// DefaultMirrorOwner is the GitHub account that owns the mirrors when no
// owner is configured.
const DefaultMirrorOwner = "DaieCooper"

// Config is the configuration of a single reconciliation run. It is read from
// an optional YAML file and then overridden by the process environment.
type Config struct {
	Project     Project  `json:"project"`
	GitLab      *GitLab  `json:"gitlab,omitempty"`
	Git         *Git     `json:"git,omitempty"`
	GitHub      GitHub   `json:"github"`
	Prune       Prune    `json:"prune"`
	Logging     Logging  `json:"logging"`
	Metrics     Metrics  `json:"metrics"`
	HTTPTimeout Duration `json:"http_timeout,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Project identifies the authoritative project.
type Project struct {
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// GitLab configures the source platform.
type GitLab struct {
	URL   string `json:"url,omitempty"`
	FQDN  string `json:"fqdn,omitempty"`
	Token string `json:"token,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// BaseURL returns the configured URL, or an https URL built from the FQDN.
func (g *GitLab) BaseURL() string {
	if g.URL != "" {
		return g.URL
	}
	return "https://" + g.FQDN
}

// Git configures a plain git remote as the source, in place of GitLab. Only
// the remote's advertised references are read; nothing is cloned.
type Git struct {
	URL      string   `json:"url,omitempty"`
	Username string   `json:"username,omitempty"`
	Token    string   `json:"token,omitempty"`
	Headers  []string `json:"headers,omitempty"` // Extra request headers, "Name: value".

	_ struct{} `additionalProperties:"false"`
}

// GitHub configures the mirror platform.
type GitHub struct {
	APIURL     string     `json:"api_url,omitempty"` // GitHub Enterprise API base URL.
	Owner      string     `json:"owner,omitempty"`
	Repository string     `json:"repository,omitempty"`
	Token      string     `json:"token,omitempty"`
	App        *GitHubApp `json:"app,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// GitHubApp holds GitHub App installation credentials. PrivateKey is either a
// path to a PEM file or the PEM itself.
type GitHubApp struct {
	AppID          int64  `json:"app_id,omitempty"`
	InstallationID int64  `json:"installation_id,omitempty"`
	PrivateKey     string `json:"private_key,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Configured reports whether GitHub App credentials were provided at all.
func (a *GitHubApp) Configured() bool {
	return a != nil && (a.AppID != 0 || a.InstallationID != 0 || a.PrivateKey != "")
}

type Prune struct {
	// DryRun defaults to true: obsolete references are looked up and logged,
	// but not deleted.
	DryRun *bool    `json:"dry_run,omitempty"`
	Keep   []string `json:"keep,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (p Prune) IsDryRun() bool {
	return p.DryRun == nil || *p.DryRun
}

type Logging struct {
	Level  string `json:"level,omitempty" enum:"debug,info,warn,warning,error"`
	Format string `json:"format,omitempty" enum:"json,text,console"`

	_ struct{} `additionalProperties:"false"`
}

type Metrics struct {
	PushgatewayURL string `json:"pushgateway_url,omitempty"`
	Job            string `json:"job,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Duration is a time.Duration written as a Go duration string, e.g. "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	val, err := time.ParseDuration(s)
	*d = Duration(val)
	return err
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(string) (string, bool)

// envBindings maps environment variables onto config paths. The CI_* and
// *_PERSONAL_API_PRIVATE_TOKEN names are the ones GitLab CI jobs provide.
var envBindings = []struct {
	env  string
	path string
}{
	{"CI_PROJECT_NAME", "project.name"},
	{"CI_PROJECT_ID", "project.id"},
	{"CI_SERVER_FQDN", "gitlab.fqdn"},
	{"CI_SERVER_URL", "gitlab.url"},
	{"GITLAB_PERSONAL_API_PRIVATE_TOKEN", "gitlab.token"},
	{"GITHUB_PERSONAL_API_PRIVATE_TOKEN", "github.token"},
	{"GITHUB_API_URL", "github.api_url"},
	{"GITHUB_MIRROR_OWNER", "github.owner"},
	{"GITHUB_MIRROR_REPOSITORY", "github.repository"},
	{"GITHUB_APP_ID", "github.app.app_id"},
	{"GITHUB_APP_INSTALLATION_ID", "github.app.installation_id"},
	{"GITHUB_APP_PRIVATE_KEY", "github.app.private_key"},
	{"MIRRORSYNC_SOURCE_GIT_URL", "git.url"},
	{"MIRRORSYNC_SOURCE_GIT_USERNAME", "git.username"},
	{"MIRRORSYNC_SOURCE_GIT_TOKEN", "git.token"},
	{"MIRRORSYNC_DRY_RUN", "prune.dry_run"},
	{"MIRRORSYNC_KEEP", "prune.keep"},
	{"MIRRORSYNC_LOG_LEVEL", "logging.level"},
	{"MIRRORSYNC_LOG_FORMAT", "logging.format"},
	{"MIRRORSYNC_PUSHGATEWAY_URL", "metrics.pushgateway_url"},
	{"MIRRORSYNC_PUSHGATEWAY_JOB", "metrics.job"},
	{"MIRRORSYNC_HTTP_TIMEOUT", "http_timeout"},
}

// Load reads the optional config file at path, overlays the environment as
// seen through lookup, applies defaults and validates the result.
func Load(path string, lookup LookupFunc) (*Config, error) {
	var cfg Config

	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		c, err := Parse(bs)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		cfg = *c
		cfg.expand(lookup)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parse validates a YAML (or JSON) document against the config schema and
// decodes it.
func Parse(bs []byte) (*Config, error) {
	if err := ValidateSchema(bs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	return configSchema.Validate(doc)
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	values := map[string]any{}
	for _, b := range envBindings {
		v, ok := lookup(b.env)
		if !ok || v == "" {
			continue
		}
		var value any = v
		if b.path == "prune.keep" {
			value = splitList(v)
		}
		setPath(values, strings.Split(b.path, "."), value)
	}

	if err := decode(values, c); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	c.GitHub.Owner = cmp.Or(c.GitHub.Owner, DefaultMirrorOwner)
	c.GitHub.Repository = cmp.Or(c.GitHub.Repository, c.Project.Name)
	c.Metrics.Job = cmp.Or(c.Metrics.Job, "mirrorsync")
}

// UsesGitSource reports whether references are read from a plain git remote
// rather than from the GitLab API.
func (c *Config) UsesGitSource() bool {
	return c.Git != nil && c.Git.URL != ""
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	missing := func(env, path string) {
		errs = append(errs, fmt.Errorf("missing %s (%s)", env, path))
	}

	if c.Project.Name == "" && c.GitHub.Repository == "" {
		missing("CI_PROJECT_NAME", "project.name")
	}

	if !c.UsesGitSource() {
		if c.Project.ID == "" {
			missing("CI_PROJECT_ID", "project.id")
		}
		if c.GitLab == nil || (c.GitLab.FQDN == "" && c.GitLab.URL == "") {
			missing("CI_SERVER_FQDN", "gitlab.fqdn")
		}
		if c.GitLab == nil || c.GitLab.Token == "" {
			missing("GITLAB_PERSONAL_API_PRIVATE_TOKEN", "gitlab.token")
		}
	}

	if app := c.GitHub.App; app.Configured() {
		if app.AppID == 0 || app.InstallationID == 0 || app.PrivateKey == "" {
			errs = append(errs, errors.New("github app: app_id, installation_id and private_key must all be set"))
		}
	} else if c.GitHub.Token == "" {
		missing("GITHUB_PERSONAL_API_PRIVATE_TOKEN", "github.token")
	}

	if c.HTTPTimeout < 0 {
		errs = append(errs, errors.New("http_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func setPath(m map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// we use this one so we don't need duplicate tags on every struct
func decode(input any, output any) error {
	config := &mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       durationHook,
		Result:           output,
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func durationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(Duration(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	d, err := time.ParseDuration(data.(string))
	if err != nil {
		return nil, err
	}
	return Duration(d), nil
}

// Package config provides YAML-based configuration loading for praktika,
// with PRAKTIKA_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/zulandar/praktika/internal/settings"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "praktika.yaml"

// Config is the top-level praktika configuration, loaded from praktika.yaml.
type Config struct {
	Repo      RepoConfig        `yaml:"repo"`
	DB        DBConfig          `yaml:"db"`
	Artifacts ArtifactsConfig   `yaml:"artifacts"`
	Report    ReportConfig      `yaml:"report"`
	GitHub    GitHubConfig      `yaml:"github"`
	Notify    NotifyConfig      `yaml:"notify"`
	Secrets   SecretsConfig     `yaml:"secrets"`
	Runner    RunnerConfig      `yaml:"runner"`
	Log       LogConfig         `yaml:"log"`
	Settings  settings.Settings `yaml:"settings"`
}

// RepoConfig names the GitHub repository workflows run for.
type RepoConfig struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// DBConfig holds connection settings for the CI checks database.
type DBConfig struct {
	Driver      string `yaml:"driver"` // sqlite or mysql
	Path        string `yaml:"path"`   // sqlite file
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
}

// ArtifactsConfig locates the local mirror of the artifact buckets.
type ArtifactsConfig struct {
	Root string `yaml:"root"`
}

// ReportConfig configures the report server.
type ReportConfig struct {
	Port           int     `yaml:"port"`
	BaseURL        string  `yaml:"base_url"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// GitHubConfig configures commit status updates.
type GitHubConfig struct {
	TokenEnv       string `yaml:"token_env"`
	InstallationID int64  `yaml:"installation_id"`
	APIURL         string `yaml:"api_url"`
}

// NotifyConfig configures failure notifications.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig is a bot token (read from an env var) and a target channel.
type ChatConfig struct {
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether both a token variable and a channel are configured.
func (c ChatConfig) Enabled() bool {
	return c.TokenEnv != "" && c.Channel != ""
}

// SecretsConfig locates secrets that are not provided through the environment.
type SecretsConfig struct {
	Dir string `yaml:"dir"`
}

// RunnerConfig controls local job execution.
type RunnerConfig struct {
	Parallelism  int           `yaml:"parallelism"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
	DockerBinary string        `yaml:"docker_binary"`
	WorkDir      string        `yaml:"workdir"`
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are the PRAKTIKA_* variables that override the YAML file.
type envOverrides struct {
	DBDriver     string  `env:"PRAKTIKA_DB_DRIVER"`
	DBPath       string  `env:"PRAKTIKA_DB_PATH"`
	DBHost       string  `env:"PRAKTIKA_DB_HOST"`
	DBPort       int     `env:"PRAKTIKA_DB_PORT"`
	DBUser       string  `env:"PRAKTIKA_DB_USER"`
	ArtifactRoot string  `env:"PRAKTIKA_ARTIFACTS_ROOT"`
	ReportPort   int     `env:"PRAKTIKA_REPORT_PORT"`
	ReportURL    string  `env:"PRAKTIKA_REPORT_BASE_URL"`
	RateLimitRPS float64 `env:"PRAKTIKA_REPORT_RATE_LIMIT_RPS"`
	SecretsDir   string  `env:"PRAKTIKA_SECRETS_DIR"`
	Parallelism  int     `env:"PRAKTIKA_RUNNER_PARALLELISM"`
	LogLevel     string  `env:"PRAKTIKA_LOG_LEVEL"`
	LogFormat    string  `env:"PRAKTIKA_LOG_FORMAT"`
	RepoOwner    string  `env:"PRAKTIKA_REPO_OWNER"`
	RepoName     string  `env:"PRAKTIKA_REPO_NAME"`
}

// Load reads a YAML config file from path, applies environment overrides from
// environ (os.Environ when nil) and returns a validated Config. A missing file at
// DefaultPath is not an error; built-in defaults are used instead.
func Load(path string, environ map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !(os.IsNotExist(err) && path == DefaultPath) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = nil
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode starts from the built-in settings so that a partial settings block
// only overrides the keys it names.
func decode(data []byte) (*Config, error) {
	cfg := Config{Settings: settings.Default()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(environ map[string]string) error {
	var o envOverrides
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.Parse(&o, opts); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	setString(&c.DB.Driver, o.DBDriver)
	setString(&c.DB.Path, o.DBPath)
	setString(&c.DB.Host, o.DBHost)
	setString(&c.DB.User, o.DBUser)
	setString(&c.Artifacts.Root, o.ArtifactRoot)
	setString(&c.Report.BaseURL, o.ReportURL)
	setString(&c.Secrets.Dir, o.SecretsDir)
	setString(&c.Log.Level, o.LogLevel)
	setString(&c.Log.Format, o.LogFormat)
	setString(&c.Repo.Owner, o.RepoOwner)
	setString(&c.Repo.Name, o.RepoName)
	if o.DBPort > 0 {
		c.DB.Port = o.DBPort
	}
	if o.ReportPort > 0 {
		c.Report.Port = o.ReportPort
	}
	if o.RateLimitRPS > 0 {
		c.Report.RateLimitRPS = o.RateLimitRPS
	}
	if o.Parallelism > 0 {
		c.Runner.Parallelism = o.Parallelism
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = ".praktika/ci.db"
	}
	if c.DB.Driver == "mysql" {
		if c.DB.Host == "" {
			c.DB.Host = "127.0.0.1"
		}
		if c.DB.Port == 0 {
			c.DB.Port = 3306
		}
		if c.DB.User == "" {
			c.DB.User = "root"
		}
	}
	if c.Artifacts.Root == "" {
		c.Artifacts.Root = ".praktika/s3"
	}
	if c.Report.Port == 0 {
		c.Report.Port = 8080
	}
	// Reports are only written to the local artifact root, so links point at
	// the report server unless an external base URL is configured.
	if c.Report.BaseURL == "" {
		c.Report.BaseURL = fmt.Sprintf("http://localhost:%d", c.Report.Port)
	}
	if c.Report.RateLimitRPS == 0 {
		c.Report.RateLimitRPS = 25
	}
	if c.Report.RateLimitBurst == 0 {
		c.Report.RateLimitBurst = 50
	}
	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = "GITHUB_TOKEN"
	}
	if c.Runner.Parallelism == 0 {
		c.Runner.Parallelism = 4
	}
	if c.Runner.JobTimeout == 0 {
		c.Runner.JobTimeout = 2 * time.Hour
	}
	if c.Runner.DockerBinary == "" {
		c.Runner.DockerBinary = "docker"
	}
	if c.Runner.WorkDir == "" {
		c.Runner.WorkDir = "."
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q must be sqlite or mysql", c.DB.Driver))
	}
	if c.Report.Port < 0 || c.Report.Port > 65535 {
		errs = append(errs, fmt.Sprintf("report.port %d out of range", c.Report.Port))
	}
	if c.Report.RateLimitRPS < 0 || c.Report.RateLimitBurst < 0 {
		errs = append(errs, "report rate limit must not be negative")
	}
	if c.Runner.Parallelism < 0 {
		errs = append(errs, "runner.parallelism must not be negative")
	}
	switch c.Log.Format {
	case "auto", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be auto, json or console", c.Log.Format))
	}
	if (c.Repo.Owner == "") != (c.Repo.Name == "") {
		errs = append(errs, "repo.owner and repo.name must be set together")
	}
	if err := c.Settings.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

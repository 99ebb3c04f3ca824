package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxDepth is the dependency recursion budget used when none is configured.
	DefaultMaxDepth = 150
	// DefaultFetchWorkers bounds concurrent repository fetches when none is configured.
	DefaultFetchWorkers = 4
)

// Settings is the top-level configuration for patchseries.
type Settings struct {
	BuildRoot    string                  `yaml:"build_root"    toml:"build_root"`
	MaxDepth     int                     `yaml:"max_depth"     toml:"max_depth"`
	FetchWorkers int                     `yaml:"fetch_workers" toml:"fetch_workers"`
	Submitting   bool                    `yaml:"submitting"    toml:"submitting"`
	MetricsFile  string                  `yaml:"metrics_file"  toml:"metrics_file"`
	Remotes      map[string]RemoteConfig `yaml:"remotes"       toml:"remotes"`
	Checkouts    []CheckoutConfig        `yaml:"checkouts"     toml:"checkouts"`
}

// RemoteConfig describes the review service serving one remote.
type RemoteConfig struct {
	Type     string `yaml:"type"     toml:"type"` // "gerrit"
	Host     string `yaml:"host"     toml:"host"`
	Username string `yaml:"username" toml:"username"`
	Token    string `yaml:"token"    toml:"token"` // Inline, ${ENV_VAR}, or file path
	Enabled  *bool  `yaml:"enabled"  toml:"enabled"`
}

// IsEnabled reports whether the remote may be queried in this run (default true).
func (r RemoteConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// CheckoutConfig maps a project (and optionally a branch) to a working copy.
type CheckoutConfig struct {
	Project string `yaml:"project" toml:"project"`
	Branch  string `yaml:"branch"  toml:"branch"`
	Path    string `yaml:"path"    toml:"path"` // relative to build_root unless absolute
	Remote  string `yaml:"remote"  toml:"remote"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads and parses a configuration file (YAML, or TOML when the
// extension is .toml), expanding environment variables and token files.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings Settings
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, decodeErr := toml.Decode(string(data), &settings); decodeErr != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", decodeErr)
		}
	} else if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.BuildRoot = expandEnv(settings.BuildRoot)
	for name, remote := range settings.Remotes {
		remote.Host = expandEnv(remote.Host)
		remote.Username = expandEnv(remote.Username)
		remote.Token = resolveToken(remote.Token)
		settings.Remotes[name] = remote
	}
	settings.applyDefaults()

	if validateErr := validate(&settings); validateErr != nil {
		return nil, validateErr
	}

	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".patchseries.yaml",
		".patchseries.yml",
		"patchseries.yaml",
		"patchseries.yml",
		".patchseries.toml",
		"patchseries.toml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// CheckoutPath returns the absolute working-copy path of a checkout.
func (s *Settings) CheckoutPath(checkout CheckoutConfig) string {
	if filepath.IsAbs(checkout.Path) || s.BuildRoot == "" {
		return checkout.Path
	}
	return filepath.Join(s.BuildRoot, checkout.Path)
}

func (s *Settings) applyDefaults() {
	if s.MaxDepth == 0 {
		s.MaxDepth = DefaultMaxDepth
	}
	if s.FetchWorkers == 0 {
		s.FetchWorkers = DefaultFetchWorkers
	}
}

func expandEnv(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := expandEnv(raw)

	// If the resolved value is a path to an existing file, read the token from it
	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func validate(settings *Settings) error {
	if len(settings.Remotes) == 0 {
		return errors.New("at least one remote must be configured")
	}
	if settings.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", settings.MaxDepth)
	}
	if settings.FetchWorkers < 0 {
		return fmt.Errorf("fetch_workers must not be negative, got %d", settings.FetchWorkers)
	}

	enabled := 0
	for name, remote := range settings.Remotes {
		if _, err := ParseRemote(name); err != nil {
			return fmt.Errorf("remotes.%s: %w", name, err)
		}
		if remote.Type == "" {
			return fmt.Errorf("remotes.%s.type is required", name)
		}
		if remote.Host == "" {
			return fmt.Errorf("remotes.%s.host is required", name)
		}
		if remote.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("at least one remote must be enabled")
	}

	for i, checkout := range settings.Checkouts {
		if checkout.Project == "" {
			return fmt.Errorf("checkouts[%d].project is required", i)
		}
		if checkout.Path == "" {
			return fmt.Errorf("checkouts[%d].path is required", i)
		}
		if checkout.Remote != "" {
			if _, err := ParseRemote(checkout.Remote); err != nil {
				return fmt.Errorf("checkouts[%d].remote: %w", i, err)
			}
		}
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dirbuf/internal/errors"

	"github.com/gobwas/glob"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure.
// It defines listing filters, remote storage, open rules, key bindings,
// colours and logging.
type Config struct {
	Ignore     []string            `yaml:"ignore"`      // Glob patterns hidden from every listing
	ShowHidden bool                `yaml:"show_hidden"` // Show dot files
	Editor     string              `yaml:"editor"`      // Fallback editor; $VISUAL/$EDITOR when empty
	CacheDir   string              `yaml:"cache_dir"`   // Local mirror of remote storage
	Collision  string              `yaml:"collision"`   // Paste onto an existing name: rename, skip or fail
	Remote     Remote              `yaml:"remote"`
	Rifle      []Rule              `yaml:"rifle"` // Open-command rules, first match wins
	Keys       map[string][]string `yaml:"keys"`  // Command name -> key overrides
	Theme      Theme               `yaml:"theme"`
	Log        Log                 `yaml:"log"`
}

// Remote selects and configures the provider behind the cache directory.
type Remote struct {
	Provider string `yaml:"provider" envconfig:"REMOTE_PROVIDER"` // rclone or s3
	Rclone   string `yaml:"rclone" envconfig:"RCLONE"`            // rclone binary
	S3       S3     `yaml:"s3"`
}

// S3 holds the settings of the S3 provider. Buckets are presented as remotes.
type S3 struct {
	Endpoint     string   `yaml:"endpoint" envconfig:"ENDPOINT"`
	Region       string   `yaml:"region" envconfig:"REGION"`
	AccessKey    string   `yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey    string   `yaml:"secret_key" envconfig:"SECRET_KEY"`
	Buckets      []string `yaml:"buckets" envconfig:"BUCKETS"`
	UsePathStyle bool     `yaml:"use_path_style" envconfig:"PATH_STYLE"`
}

// Rule maps files to an external command. Match is a glob against the base
// name, Mime a prefix of the detected content type; empty fields match all.
type Rule struct {
	Match   string `yaml:"match"`
	Mime    string `yaml:"mime"`
	Command string `yaml:"command"`
}

// Theme holds 256-colour codes (or #rrggbb) for each kind of row.
type Theme struct {
	Name       string `yaml:"name"`
	Header     string `yaml:"header"`
	File       string `yaml:"file"`
	Executable string `yaml:"executable"`
	Symlink    string `yaml:"symlink"`
	Directory  string `yaml:"directory"`
	Pick       string `yaml:"pick"`
	Cut        string `yaml:"cut"`
	Copy       string `yaml:"copy"`
}

// Log configures the log sink. The terminal is owned by the UI, so entries
// go to a file.
type Log struct {
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
	Debug bool   `yaml:"debug"`
}

// DefaultPath returns ~/.config/dirbuf/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dirbuf", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location
// (~/.config/dirbuf/config.yaml).
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
// DIRBUF_* environment variables override the remote settings.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err == nil {
		var tempCfg Config
		if err := yaml.Unmarshal(data, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		cfg.merge(&tempCfg)
	}

	if err := envconfig.Process("dirbuf", &cfg.Remote); err != nil {
		return nil, errors.NewConfigError("invalid environment", "remote", errors.InvalidConfig, err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// merge copies every field set in loaded over the defaults.
func (c *Config) merge(loaded *Config) {
	if loaded.Ignore != nil {
		c.Ignore = loaded.Ignore
	}
	c.ShowHidden = loaded.ShowHidden
	if loaded.Editor != "" {
		c.Editor = loaded.Editor
	}
	if loaded.CacheDir != "" {
		c.CacheDir = loaded.CacheDir
	}
	if loaded.Collision != "" {
		c.Collision = loaded.Collision
	}

	if loaded.Remote.Provider != "" {
		c.Remote.Provider = loaded.Remote.Provider
	}
	if loaded.Remote.Rclone != "" {
		c.Remote.Rclone = loaded.Remote.Rclone
	}
	s3 := loaded.Remote.S3
	if s3.Endpoint != "" {
		c.Remote.S3.Endpoint = s3.Endpoint
	}
	if s3.Region != "" {
		c.Remote.S3.Region = s3.Region
	}
	if s3.AccessKey != "" {
		c.Remote.S3.AccessKey = s3.AccessKey
	}
	if s3.SecretKey != "" {
		c.Remote.S3.SecretKey = s3.SecretKey
	}
	if len(s3.Buckets) > 0 {
		c.Remote.S3.Buckets = s3.Buckets
	}
	c.Remote.S3.UsePathStyle = s3.UsePathStyle

	if len(loaded.Rifle) > 0 {
		c.Rifle = loaded.Rifle
	}
	for name, keys := range loaded.Keys {
		c.Keys[name] = keys
	}

	if loaded.Theme.Name != "" {
		c.Theme = GetTheme(loaded.Theme.Name)
	}
	c.Theme.override(loaded.Theme)

	if loaded.Log.File != "" {
		c.Log.File = loaded.Log.File
	}
	c.Log.JSON = loaded.Log.JSON
	c.Log.Debug = loaded.Log.Debug
}

func (t *Theme) override(o Theme) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&t.Header, o.Header)
	set(&t.File, o.File)
	set(&t.Executable, o.Executable)
	set(&t.Symlink, o.Symlink)
	set(&t.Directory, o.Directory)
	set(&t.Pick, o.Pick)
	set(&t.Cut, o.Cut)
	set(&t.Copy, o.Copy)
}

func (c *Config) expandPaths() {
	c.CacheDir = ExpandHome(c.CacheDir)
	c.Log.File = ExpandHome(c.Log.File)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Ignore = []string{}
	cfg.ShowHidden = false
	cfg.CacheDir = "~/.cache/dirbuf/remote"
	cfg.Collision = "rename"

	cfg.Remote.Provider = "rclone"
	cfg.Remote.Rclone = "rclone"
	cfg.Remote.S3.Region = "us-east-1"

	cfg.Rifle = []Rule{}
	cfg.Keys = make(map[string][]string)
	cfg.Theme = GetTheme("default")
	cfg.Log.File = "~/.cache/dirbuf/dirbuf.log"

	return cfg
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
// Returns error if any settings are invalid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	for _, pattern := range c.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.NewConfigError("invalid ignore pattern", pattern, errors.InvalidConfig, err)
		}
	}

	switch c.Remote.Provider {
	case "rclone", "s3":
	default:
		return errors.NewConfigError("unknown remote provider", c.Remote.Provider, errors.InvalidConfig, nil)
	}
	switch c.Collision {
	case "rename", "skip", "fail":
	default:
		return errors.NewConfigError("unknown collision strategy", c.Collision, errors.InvalidConfig, nil)
	}
	if c.CacheDir == "" {
		return errors.NewConfigError("cache directory is required", "cache_dir", errors.InvalidConfig, nil)
	}

	for i, rule := range c.Rifle {
		if rule.Command == "" {
			return errors.NewConfigError(fmt.Sprintf("rifle rule %d: command is required", i), "rifle", errors.InvalidConfig, nil)
		}
		if rule.Match == "" && rule.Mime == "" {
			return errors.NewConfigError(fmt.Sprintf("rifle rule %d: match or mime is required", i), "rifle", errors.InvalidConfig, nil)
		}
		if rule.Match != "" {
			if _, err := glob.Compile(rule.Match); err != nil {
				return errors.NewConfigError("invalid rifle pattern", rule.Match, errors.InvalidConfig, err)
			}
		}
	}

	for name, keys := range c.Keys {
		if len(keys) == 0 {
			return errors.NewConfigError("key override needs at least one key", name, errors.InvalidConfig, nil)
		}
	}
	return nil
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// GetTheme returns a predefined theme by name.
// If the theme doesn't exist, returns the default theme.
func GetTheme(name string) Theme {
	themes := map[string]Theme{
		"default": {
			Name:       "default",
			Header:     "15",  // White
			File:       "252", // Light grey
			Executable: "114", // Green
			Symlink:    "45",  // Cyan
			Directory:  "33",  // Blue
			Pick:       "226", // Yellow
			Cut:        "196", // Red
			Copy:       "208", // Orange
		},
		"dark": {
			Name:       "dark",
			Header:     "250",
			File:       "245",
			Executable: "71",
			Symlink:    "37",
			Directory:  "25",
			Pick:       "214",
			Cut:        "160",
			Copy:       "172",
		},
		"light": {
			Name:       "light",
			Header:     "0",
			File:       "238",
			Executable: "28",
			Symlink:    "30",
			Directory:  "19",
			Pick:       "136",
			Cut:        "124",
			Copy:       "130",
		},
		"monochrome": {
			Name:       "monochrome",
			Header:     "255",
			File:       "250",
			Executable: "252",
			Symlink:    "248",
			Directory:  "255",
			Pick:       "231",
			Cut:        "241",
			Copy:       "245",
		},
	}

	if theme, ok := themes[name]; ok {
		return theme
	}
	return themes["default"]
}

// Package config provides the tool configuration: policy file prefix,
// worker pool sizing, queue timing and the list of conventionally
// non-executable file extensions. Settings load from a YAML file with
// sensible defaults for everything.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cperrin88/aclman/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// PolicyFilePrefix is the reserved name prefix of policy files.
	PolicyFilePrefix string `yaml:"policy_file_prefix,omitempty"`

	// Workers is the total size of the worker pool, including the
	// invoking task.
	Workers int `yaml:"workers,omitempty"`

	// QueueTimeout bounds how long an idle worker waits for new work
	// before checking for cancellation or draining out.
	QueueTimeout time.Duration `yaml:"queue_timeout,omitempty"`

	// NonExecExtensions lists file extensions that never receive execute
	// permission regardless of policy.
	NonExecExtensions []string `yaml:"nonexec_extensions,omitempty"`
}

// Default configuration values.
const (
	// DefaultWorkers is the default worker pool size (four dedicated
	// workers plus the invoking task).
	DefaultWorkers = 5

	// DefaultQueueTimeout is the default idle wait on the work queue.
	DefaultQueueTimeout = time.Second

	// DefaultPolicyFilePrefix is the reserved policy-file name prefix.
	DefaultPolicyFilePrefix = "..aclman"
)

// DefaultNonExecExtensions lists file types that are conventionally data or
// media and must never end up executable, whatever the policy says.
var DefaultNonExecExtensions = []string{
	"7z",
	"ani", "avi",
	"bat", "bik", "bin", "bmp", "bup", "bz2",
	"c", "cab", "cfg", "chm", "civ5mod", "class", "cmd", "conf", "cpp", "crt", "csr", "css", "csv", "cue",
	"dat", "db", "deb", "desc", "dll", "dmg", "doc", "docx", "ds_store", "dtd", "dvr-ms",
	"ear", "exe",
	"gif", "gz",
	"h", "hlp", "htm", "html",
	"ico", "ifo", "img", "inf", "ini", "iso",
	"jar", "java", "jpg",
	"kdbx", "key",
	"ldif", "lnk", "log",
	"m3u", "manifest", "md5", "mdf", "mds", "mkv", "mov", "mp3", "mp4", "mpeg", "mpg", "msi",
	"nfo", "nrg",
	"odg", "ods", "odt", "otg", "ots", "ott",
	"pdf", "pdx", "pem", "pit", "png", "ppt", "pptx", "properties",
	"rar", "reg", "rpm", "rtf",
	"sd7", "srt", "sub", "svg", "sxc", "sxw",
	"tar", "tgz", "tif", "torrent", "ttf", "txt",
	"url",
	"vbox-extpack", "vdf", "vob",
	"war", "wav", "wma", "wmv",
	"xls", "xlsx", "xml",
	"zip", "zoo",
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			PolicyFilePrefix:  DefaultPolicyFilePrefix,
			Workers:           DefaultWorkers,
			QueueTimeout:      DefaultQueueTimeout,
			NonExecExtensions: append([]string(nil), DefaultNonExecExtensions...),
		},
	}
}

// LoadConfig loads a configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfigParse, "reading %s: %v", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrConfigParse, "parsing %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration from path if given, from the
// user-level config file if present, and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(defaultPath); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(defaultPath)
}

// DefaultConfigPath returns the user-level configuration file location.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "aclman", "config.yaml"), nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Settings.PolicyFilePrefix == "" {
		return errors.Wrap(errors.ErrConfigValidation, "policy_file_prefix cannot be empty")
	}
	if c.Settings.Workers < 1 {
		return errors.Wrap(errors.ErrConfigValidation, "workers must be at least 1")
	}
	if c.Settings.QueueTimeout <= 0 {
		return errors.Wrap(errors.ErrConfigValidation, "queue_timeout must be positive")
	}
	return nil
}

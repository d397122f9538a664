// Package config resolves the fixture's startup configuration from a .env
// file, an optional YAML or TOML server file, and the process environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultHost is the bind address of the application listener.
const DefaultHost = "0.0.0.0"

// Environment variables read by Load.
const (
	EnvPort       = "PORT"
	EnvAdminPort  = "ADMIN_PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvConfigFile = "FIXTURE_CONFIG"
)

// DefaultConfigFiles are probed in the working directory, in order, when no
// config file is named explicitly.
var DefaultConfigFiles = []string{"fixture.yml", "fixture.yaml", "fixture.toml"}

var (
	// ErrPortMissing means PORT was unset or empty.
	ErrPortMissing = errors.New("PORT is not set")
	// ErrPortInvalid means a port was not an integer in 1..65535.
	ErrPortInvalid = errors.New("invalid port")
	// ErrConfigNotFound means an explicitly named config file does not exist.
	ErrConfigNotFound = errors.New("config file does not exist")
	// ErrConfigFormat means the config file extension is not .yml, .yaml or .toml.
	ErrConfigFormat = errors.New("unsupported config file format")
)

// Config is the resolved startup configuration.
type Config struct {
	Host              string        `yaml:"host" toml:"host"`
	Port              int           `yaml:"-" toml:"-"`
	AdminPort         int           `yaml:"admin_port" toml:"admin_port"`
	LogLevel          string        `yaml:"log_level" toml:"log_level"`
	ReadTimeout       time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes" toml:"max_header_bytes"`

	// ConfigFile is the path of the file that was loaded, if any.
	ConfigFile string `yaml:"-" toml:"-"`
}

// Default returns the configuration used before any file or variable is applied.
// Port is left zero: it has no default.
func Default() Config {
	return Config{
		Host:              DefaultHost,
		LogLevel:          "info",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}

// Options controls where Load looks.
type Options struct {
	// WorkDir anchors .env, default config files and relative config paths.
	// Empty means the process working directory.
	WorkDir string
	// ConfigFile overrides FIXTURE_CONFIG.
	ConfigFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration. Precedence, lowest first: defaults,
// config file, .env, process environment. PORT can only come from the
// environment and is required.
func Load(opts Options) (Config, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}

	lookup, err := envLookup(workDir, opts.LookupEnv)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	explicit := opts.ConfigFile
	if explicit == "" {
		explicit, _ = lookup(EnvConfigFile)
	}
	path, err := resolveConfigFile(workDir, strings.TrimSpace(explicit))
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = path
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants Load guarantees.
func (c Config) Validate() error {
	if c.Port == 0 {
		return ErrPortMissing
	}
	if err := checkPort(EnvPort, c.Port); err != nil {
		return err
	}
	if c.AdminPort != 0 {
		if err := checkPort(EnvAdminPort, c.AdminPort); err != nil {
			return err
		}
		if c.AdminPort == c.Port {
			return fmt.Errorf("%w: %s must differ from %s (%d)", ErrPortInvalid, EnvAdminPort, EnvPort, c.Port)
		}
	}
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":        c.ReadTimeout,
		"read_header_timeout": c.ReadHeaderTimeout,
		"write_timeout":       c.WriteTimeout,
		"idle_timeout":        c.IdleTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("max_header_bytes must not be negative, got %d", c.MaxHeaderBytes)
	}
	return nil
}

// AdminEnabled reports whether the admin listener should run.
func (c Config) AdminEnabled() bool {
	return c.AdminPort != 0
}

// ParsePort converts a port string. Only plain decimal digits are accepted:
// signs, leading zeros and surrounding whitespace are rejected, as are values
// outside 1-65535.
func ParsePort(name, value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: %s is empty", ErrPortInvalid, name)
	}
	if strings.TrimLeft(value, "0123456789") != "" || (len(value) > 1 && value[0] == '0') {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrPortInvalid, name, value)
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrPortInvalid, name, value)
	}
	if err := checkPort(name, port); err != nil {
		return 0, err
	}
	return port, nil
}

func checkPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %s=%d is outside 1-65535", ErrPortInvalid, name, port)
	}
	return nil
}

// envLookup layers .env values under the real environment.
func envLookup(workDir string, lookup func(string) (string, bool)) (func(string) (string, bool), error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	dotenv, err := godotenv.Read(filepath.Join(workDir, ".env"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
		return lookup, nil
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func resolveConfigFile(workDir, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(workDir, explicit)
		}
		ok, err := fileExists(explicit)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w at: %s", ErrConfigNotFound, explicit)
		}
		return explicit, nil
	}
	for _, name := range DefaultConfigFiles {
		candidate := filepath.Join(workDir, name)
		ok, err := fileExists(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document is a valid, if pointless, config file.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
		}
	default:
		return fmt.Errorf("%w: %s", ErrConfigFormat, path)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	port, ok := lookup(EnvPort)
	if !ok || strings.TrimSpace(port) == "" {
		return ErrPortMissing
	}
	p, err := ParsePort(EnvPort, port)
	if err != nil {
		return err
	}
	cfg.Port = p

	if v, ok := lookup(EnvAdminPort); ok && strings.TrimSpace(v) != "" {
		p, err := ParsePort(EnvAdminPort, v)
		if err != nil {
			return err
		}
		cfg.AdminPort = p
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"gopkg.in/yaml.v3"
)

// Connection is a named target: where a database lives, and optionally the
// credentials to reach it.
type Connection struct {
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type" yaml:"type"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Database       string `json:"database" yaml:"database"`
	UseServiceName bool   `json:"use_service_name" yaml:"use_service_name"`
	Username       string `json:"username,omitempty" yaml:"username"`
	Password       string `json:"password,omitempty" yaml:"password"`
	Description    string `json:"description" yaml:"description"`
}

type PoolConfig struct {
	MaxSize        int      `json:"max_size" yaml:"max_size"`
	MinIdle        *int     `json:"min_idle" yaml:"min_idle"` // nil means DefaultMinIdle; 0 keeps no idle connections
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout"`
	IdleTimeout    Duration `json:"idle_timeout" yaml:"idle_timeout"`
	MaxLifetime    Duration `json:"max_lifetime" yaml:"max_lifetime"`
	PostgresDriver string   `json:"postgres_driver" yaml:"postgres_driver"` // postgres | pgx
	SSLMode        string   `json:"ssl_mode" yaml:"ssl_mode"`
}

type SessionConfig struct {
	TTL           Duration `json:"ttl" yaml:"ttl"`
	SweepInterval Duration `json:"sweep_interval" yaml:"sweep_interval"`
	Policy        string   `json:"policy" yaml:"policy"` // reuse | single-use
}

type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	OutputFile string `json:"output_file" yaml:"output_file"`
	MaxSizeMB  int64  `json:"max_size_mb" yaml:"max_size_mb"`
	Console    bool   `json:"console" yaml:"console"`
	Format     string `json:"format" yaml:"format"` // text | json
}

type ServerConfig struct {
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`
	RESTAddr string `json:"rest_addr" yaml:"rest_addr"`
}

type Config struct {
	Connections       map[string]Connection `json:"connections" yaml:"connections"`
	DefaultConnection string                `json:"default_connection" yaml:"default_connection"`
	Pool              PoolConfig            `json:"pool" yaml:"pool"`
	Session           SessionConfig         `json:"session" yaml:"session"`
	Logging           LoggingConfig         `json:"logging" yaml:"logging"`
	Server            ServerConfig          `json:"server" yaml:"server"`

	// Path is the file the config was read from, empty when built from defaults.
	Path string `json:"-" yaml:"-"`
}

// LoadConfig reads the config from path, or from the first well-known
// location that exists when path is empty. With no file at all it returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	for _, p := range getConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return loadConfigFromFile(p)
		}
	}

	cfg := &Config{Connections: make(map[string]Connection)}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) ListConnections() map[string]Connection {
	return c.Connections
}

func (c *Config) ValidateConnection(conn Connection) error {
	if conn.Name == "" {
		return fmt.Errorf("connection name is required")
	}
	if conn.Type == "" {
		return fmt.Errorf("connection type is required")
	}
	target, err := conn.Target()
	if err != nil {
		return err
	}
	if target.Database == "" {
		return fmt.Errorf("connection database is required")
	}
	if target.Kind != client.SQLite {
		if target.Host == "" {
			return fmt.Errorf("connection host is required")
		}
		if target.Port < 1 || target.Port > 65535 {
			return fmt.Errorf("connection port must be between 1 and 65535, got %d", target.Port)
		}
	}
	return nil
}

// Target converts the connection to a factory target.
func (conn Connection) Target() (client.Target, error) {
	kind, err := client.ParseKind(conn.Type)
	if err != nil {
		return client.Target{}, err
	}
	return client.Target{
		Kind:           kind,
		Host:           conn.Host,
		Port:           conn.Port,
		Database:       conn.Database,
		UseServiceName: conn.UseServiceName,
		Username:       conn.Username,
		Password:       conn.Password,
	}, nil
}

// Targets returns every configured connection as a named factory target.
func (c *Config) Targets() (map[string]client.Target, error) {
	targets := make(map[string]client.Target, len(c.Connections))
	for name, conn := range c.Connections {
		t, err := conn.Target()
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", name, err)
		}
		targets[name] = t
	}
	return targets, nil
}

func (p PoolConfig) minIdle() int {
	if p.MinIdle == nil {
		return DefaultMinIdle
	}
	return *p.MinIdle
}

// ClientPoolConfig converts the pool section for the factory.
func (c *Config) ClientPoolConfig() client.PoolConfig {
	return client.PoolConfig{
		MaxSize:        c.Pool.MaxSize,
		MinIdle:        c.Pool.minIdle(),
		ConnectTimeout: c.Pool.ConnectTimeout.Std(),
		IdleTimeout:    c.Pool.IdleTimeout.Std(),
		MaxLifetime:    c.Pool.MaxLifetime.Std(),
	}
}

// NewFactory builds the pool factory described by the config.
func (c *Config) NewFactory() (*client.Factory, error) {
	targets, err := c.Targets()
	if err != nil {
		return nil, err
	}
	f := client.NewFactory(c.ClientPoolConfig(), targets)
	f.PostgresDriver = c.Pool.PostgresDriver
	f.SSLMode = c.Pool.SSLMode
	return f, nil
}

func getConfigPaths() []string {
	var dirs []string

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			dirs = append(dirs, filepath.Join(appData, "db-router"))
		}
	default:

		homeDir := os.Getenv("HOME")
		if homeDir != "" {
			dirs = append(dirs, filepath.Join(homeDir, ".config", "db-router"))
		}
	}

	if pwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, pwd)
	}

	var paths []string
	for _, dir := range dirs {
		for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := []byte(os.ExpandEnv(string(data)))

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(expanded, &config)
	default:
		err = yaml.Unmarshal(expanded, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Connections == nil {
		config.Connections = make(map[string]Connection)
	}
	for name, conn := range config.Connections {
		conn.Name = name
		if err := config.ValidateConnection(conn); err != nil {
			return nil, fmt.Errorf("invalid connection %s: %w", name, err)
		}
		config.Connections[name] = conn
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	config.Path = path

	return &config, nil
}

// Duration is a time.Duration that reads "30s"-style strings from both JSON
// and YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or nanoseconds: %s", string(b))
	}
	*d = Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

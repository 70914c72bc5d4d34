package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvFile names the optional YAML file read before the environment.
const EnvFile = "BANDSTAND_CONFIG"

// DB locates the database.
type DB struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Server is the configuration of the server binary.
type Server struct {
	Listen          string        `yaml:"listen"`
	DB              DB            `yaml:"database"`
	Workers         int           `yaml:"workers"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ScriptDir       string        `yaml:"script_dir"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	DBCheckInterval time.Duration `yaml:"db_check_interval"`
	RequireAuth     bool          `yaml:"require_auth"`
}

// Client is the configuration of the client binary.
type Client struct {
	Server            string        `yaml:"server"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	History           string        `yaml:"history"`
}

type file struct {
	Server Server `yaml:"server"`
	Client Client `yaml:"client"`
}

// DefaultServer returns the server defaults.
func DefaultServer() Server {
	return Server{
		Listen:          "localhost:1782",
		DB:              DB{Driver: "postgres"},
		Workers:         3,
		ShutdownGrace:   5 * time.Second,
		ReadTimeout:     30 * time.Second,
		DBCheckInterval: 10 * time.Second,
		RequireAuth:     true,
	}
}

// DefaultClient returns the client defaults.
func DefaultClient() Client {
	return Client{
		Server:            "localhost:1782",
		ReconnectDelay:    5 * time.Second,
		ReconnectAttempts: 3,
	}
}

// LoadServer builds the server configuration from the defaults, the YAML
// file named by BANDSTAND_CONFIG and the BANDSTAND_* variables, in that
// order of precedence from lowest to highest. getenv is usually os.Getenv.
func LoadServer(getenv func(string) string) (Server, error) {
	f := file{Server: DefaultServer(), Client: DefaultClient()}
	if err := readFile(getenv(EnvFile), &f); err != nil {
		return Server{}, err
	}
	cfg := f.Server
	e := env{getenv: getenv}
	e.str("BANDSTAND_LISTEN", &cfg.Listen)
	e.str("BANDSTAND_DB_DRIVER", &cfg.DB.Driver)
	e.str("BANDSTAND_DB_URL", &cfg.DB.URL)
	e.str("BANDSTAND_DB_USER", &cfg.DB.User)
	e.str("BANDSTAND_DB_PASSWORD", &cfg.DB.Password)
	e.int("BANDSTAND_WORKERS", &cfg.Workers)
	e.duration("BANDSTAND_SHUTDOWN_GRACE", &cfg.ShutdownGrace)
	e.duration("BANDSTAND_READ_TIMEOUT", &cfg.ReadTimeout)
	e.str("BANDSTAND_SCRIPT_DIR", &cfg.ScriptDir)
	e.str("BANDSTAND_METRICS_ADDR", &cfg.MetricsAddr)
	e.duration("BANDSTAND_DB_CHECK_INTERVAL", &cfg.DBCheckInterval)
	e.bool("BANDSTAND_REQUIRE_AUTH", &cfg.RequireAuth)
	if err := errors.Join(e.errs...); err != nil {
		return Server{}, err
	}
	return cfg, cfg.Validate()
}

// LoadClient is LoadServer for the client.
func LoadClient(getenv func(string) string) (Client, error) {
	f := file{Server: DefaultServer(), Client: DefaultClient()}
	if err := readFile(getenv(EnvFile), &f); err != nil {
		return Client{}, err
	}
	cfg := f.Client
	e := env{getenv: getenv}
	e.str("BANDSTAND_SERVER", &cfg.Server)
	e.duration("BANDSTAND_RECONNECT_DELAY", &cfg.ReconnectDelay)
	e.int("BANDSTAND_RECONNECT_ATTEMPTS", &cfg.ReconnectAttempts)
	e.str("BANDSTAND_HISTORY", &cfg.History)
	if err := errors.Join(e.errs...); err != nil {
		return Client{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every missing or out of range setting.
func (c Server) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.User == "" {
			errs = append(errs, errors.New("database user is required for postgres"))
		}
		if c.DB.Password == "" {
			errs = append(errs, errors.New("database password is required for postgres"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DB.Driver))
	}
	if c.DB.URL == "" {
		errs = append(errs, errors.New("database url is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.ShutdownGrace <= 0 || c.ReadTimeout <= 0 || c.DBCheckInterval <= 0 {
		errs = append(errs, errors.New("durations must be positive"))
	}
	return errors.Join(errs...)
}

// Validate reports every missing or out of range setting.
func (c Client) Validate() error {
	var errs []error
	if c.Server == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("reconnect delay must be positive"))
	}
	if c.ReconnectAttempts < 0 {
		errs = append(errs, errors.New("reconnect attempts must not be negative"))
	}
	return errors.Join(errs...)
}

func readFile(path string, f *file) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// env applies environment overrides and collects parse errors.
type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key string, dst *string) {
	if v := e.getenv(key); v != "" {
		*dst = v
	}
}

func (e *env) int(key string, dst *int) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *env) duration(key string, dst *time.Duration) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *env) bool(key string, dst *bool) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

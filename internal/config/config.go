package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const (
	AuthStrategyHS256 = "hs256"
	AuthStrategyOIDC  = "oidc"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env        string `yaml:"env"`
	BaseURL    string `yaml:"base_url"`
	ShortCode  `yaml:"short_code"`
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Auth       `yaml:"auth"`
	Enrich     `yaml:"enrich"`
	Analytics  `yaml:"analytics"`
}

type ShortCode struct {
	Length int `yaml:"length"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// TLS reports whether both a certificate and a key are configured.
func (s *HTTPServer) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

type Storage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

const defaultSQLiteDSN = "file:shortlink.db"

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// Redis configures the link cache. An empty URL disables caching.
type Redis struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

type Auth struct {
	Enabled   bool   `yaml:"enabled"`
	Strategy  string `yaml:"strategy"`
	JWTSecret string `yaml:"jwt_secret"`
	IssuerURL string `yaml:"issuer_url"`
	Audience  string `yaml:"audience"`
}

type Enrich struct {
	IPInfoToken string        `yaml:"ipinfo_token"`
	GeoEnabled  bool          `yaml:"geo_enabled"`
	GeoTimeout  time.Duration `yaml:"geo_timeout"`
}

// GeoActive reports whether geolocation lookups should hit the network.
func (e *Enrich) GeoActive() bool {
	return e.GeoEnabled && e.IPInfoToken != ""
}

type Analytics struct {
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	EnrichTimeout time.Duration `yaml:"enrich_timeout"`
	InlineTimeout time.Duration `yaml:"inline_timeout"`
}

// DatabaseDSN returns the DSN for the configured storage driver, falling back
// to the postgres section or a local SQLite file when none is set explicitly.
func (c *Config) DatabaseDSN() string {
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		return c.Postgres.DSN()
	case DriverSQLite:
		return defaultSQLiteDSN
	default:
		return ""
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	applyEnv(&cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.ShortCode = ShortCode{Length: 6}
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = Storage{Driver: DriverPostgres}
	cfg.Postgres = defaultPostgres
	cfg.Redis = Redis{TTL: time.Hour}
	cfg.Auth = Auth{Strategy: AuthStrategyHS256}
	cfg.Enrich = Enrich{GeoEnabled: true, GeoTimeout: 1500 * time.Millisecond}
	cfg.Analytics = Analytics{Workers: 4, QueueSize: 1024, EnrichTimeout: 2 * time.Second, InlineTimeout: 500 * time.Millisecond}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"BASE_URL", &cfg.BaseURL},
		{"DATABASE_URL", &cfg.Storage.DSN},
		{"STORAGE_DRIVER", &cfg.Storage.Driver},
		{"REDIS_URL", &cfg.Redis.URL},
		{"JWT_SECRET", &cfg.Auth.JWTSecret},
		{"IPINFO_TOKEN", &cfg.Enrich.IPInfoToken},
	}

	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) url", c.BaseURL))
	}

	if c.ShortCode.Length <= 0 {
		errs = append(errs, errors.New("short_code.length must be positive"))
	}

	switch c.Storage.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.Auth.Enabled {
		switch c.Auth.Strategy {
		case AuthStrategyHS256:
			if c.Auth.JWTSecret == "" {
				errs = append(errs, errors.New("auth.jwt_secret is required for the hs256 strategy"))
			}
		case AuthStrategyOIDC:
			if c.Auth.IssuerURL == "" {
				errs = append(errs, errors.New("auth.issuer_url is required for the oidc strategy"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown auth.strategy %q", c.Auth.Strategy))
		}
	}

	if c.Analytics.Workers <= 0 {
		errs = append(errs, errors.New("analytics.workers must be positive"))
	}
	if c.Analytics.QueueSize < 0 {
		errs = append(errs, errors.New("analytics.queue_size must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

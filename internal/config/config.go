package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds everything the server reads from the environment
type Config struct {
	Port        string   `envconfig:"PORT" default:"8080"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	InstanceID  string   `envconfig:"INSTANCE_ID"`
	JWTSecret   string   `envconfig:"JWT_SECRET" required:"true"`
	QRSecret    string   `envconfig:"QR_SECRET"`

	Database DatabaseConfig `envconfig:"DB"`
	Relay    RelayConfig    `envconfig:"RELAY"`
	Twilio   TwilioConfig   `envconfig:"TWILIO"`
}

type DatabaseConfig struct {
	Driver     string `envconfig:"DRIVER" default:"postgres"`
	Host       string `envconfig:"HOST" default:"localhost"`
	Port       string `envconfig:"PORT" default:"5432"`
	User       string `envconfig:"USER"`
	Password   string `envconfig:"PASSWORD"`
	Name       string `envconfig:"NAME"`
	SSLMode    string `envconfig:"SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"housecup.db"`
}

// RelayConfig controls cross-instance event fan-out over Postgres LISTEN/NOTIFY
type RelayConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"false"`
	Channel string `envconfig:"CHANNEL" default:"housecup_events"`
}

// TwilioConfig enables winner announcements by SMS when AccountSID is set
type TwilioConfig struct {
	AccountSID string   `envconfig:"ACCOUNT_SID"`
	AuthToken  string   `envconfig:"AUTH_TOKEN"`
	From       string   `envconfig:"FROM"`
	Notify     []string `envconfig:"NOTIFY"`
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != "" && len(t.Notify) > 0
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.QRSecret == "" {
		c.QRSecret = c.JWTSecret
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Name == "" {
			return errors.New("DB_NAME must be set for the postgres driver")
		}
	case DriverSQLite:
		if c.Relay.Enabled {
			return errors.New("RELAY_ENABLED requires the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	return nil
}

// DSN returns the libpq-style connection string used by both gorm and the relay listener
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// SQLiteDSN points glebarez/sqlite at a file with a busy timeout so writers queue instead of failing
func (d DatabaseConfig) SQLiteDSN() string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")

	path := d.SQLitePath
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path + "?" + params.Encode()
}

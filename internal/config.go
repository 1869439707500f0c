package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeJWT      = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Mongo     MongoConfig       `yaml:"mongo"`
	Breaker   BreakerConfig     `yaml:"breaker"`
	Auth      AuthConfig        `yaml:"auth"`
	Directory DirectoryConfig   `yaml:"directory"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if err := c.SQLite.Validate(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	case StoreDriverMongo:
		if err := c.Mongo.Validate(); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}
	if err := c.Breaker.Validate(); err != nil {
		return fmt.Errorf("breaker: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Directory.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Timezone applies to meeting dateTime values without an offset.
	Timezone string `yaml:"timezone"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app: timezone: %w", err)
	}
	return c.HTTP.Validate()
}

// Location resolves Timezone, defaulting to UTC.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StoreDriverSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(StoreDriverSQLite, StoreDriverMongo)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Validate validates the MongoDB configuration.
func (c *MongoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.ConnectTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// BreakerConfig tunes the circuit breaker around the store.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// Validate validates the breaker configuration.
func (c *BreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.FailureThreshold, validation.Required),
		validation.Field(&c.OpenTimeout, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): every request acts as DevUserID with DevRole, for local dev.
//   - "jwt": HS256 bearer tokens signed with Secret; the subject is the user id.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Secret    string `yaml:"secret"`
	AdminRole string `yaml:"admin_role"`
	DevUserID string `yaml:"dev_user_id"`
	DevRole   string `yaml:"dev_role"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeJWT)),
		validation.Field(&c.AdminRole, validation.Required),
		validation.Field(&c.DevUserID, validation.Required, is.MongoID,
			validation.NotIn(primitive.NilObjectID.Hex()).Error("must not be the zero id")),
		validation.Field(&c.DevRole, validation.Required),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeJWT && c.Secret == "" {
		return fmt.Errorf("auth: mode is %q but secret is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when bearer tokens are enforced.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeJWT
}

// DevUser returns the identity used when auth is disabled and by the MCP server.
func (c *AuthConfig) DevUser() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.DevUserID)
}

// DirectoryConfig points at the optional users/contacts/leads fixture.
type DirectoryConfig struct {
	Fixture string `yaml:"fixture"`
	Watch   bool   `yaml:"watch"`
}

// Validate validates the directory configuration.
func (c *DirectoryConfig) Validate() error {
	if c.Watch && c.Fixture == "" {
		return fmt.Errorf("directory: watch requires a fixture path")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
		},
		SQLite: SQLiteConfig{
			Path: "./meetbook.db",
		},
		Mongo: MongoConfig{
			Database:       "crm",
			ConnectTimeout: 10 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Auth: AuthConfig{
			Mode:      AuthModeDisabled,
			AdminRole: "superAdmin",
			DevUserID: "000000000000000000000001",
			DevRole:   "superAdmin",
		},
	}
}

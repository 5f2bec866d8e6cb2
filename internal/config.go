package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/c-c-k/progirl/internal/autoid"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/resolver"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	PKB      PKBConfig         `yaml:"pkb"`
	Resolver ResolverConfig    `yaml:"resolver"`
	AutoID   AutoIDConfig      `yaml:"auto_id"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.PKB.Validate(); err != nil {
		return err
	}
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if err := c.AutoID.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Host is the listen interface. Empty listens on every interface.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PKBConfig holds the collection definitions.
type PKBConfig struct {
	// Prefix is prepended to collection names to derive ids.
	Prefix string `yaml:"prefix"`
	// WorkingDir anchors relative collection paths. Empty means the
	// process working directory.
	WorkingDir string `yaml:"working_dir"`
	// Active names the collection selected at startup.
	Active      string                  `yaml:"active"`
	Collections []collection.Definition `yaml:"collections"`
}

// Validate validates the collection configuration. Definitions are
// validated by collection.Load once merged with the defaults.
func (c *PKBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Prefix, validation.Required),
	)
}

// LoadOptions returns the registry options of the configuration.
func (c *PKBConfig) LoadOptions() collection.LoadOptions {
	return collection.LoadOptions{
		Prefix:     c.Prefix,
		WorkingDir: c.WorkingDir,
		Active:     c.Active,
	}
}

// ResolverConfig selects the resolution strategies.
type ResolverConfig struct {
	Mode           string   `yaml:"mode"`
	Strategies     []string `yaml:"strategies"`
	LocalProtocols []string `yaml:"local_protocols"`
}

// Validate validates the resolver configuration.
func (c *ResolverConfig) Validate() error {
	known := []any{string(resolver.ModeContext), string(resolver.ModeCollection)}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(known...)),
		validation.Field(&c.Strategies, validation.Each(validation.In(known...))),
	)
}

// Options returns the chain options of the configuration.
func (c *ResolverConfig) Options(logger *slog.Logger) resolver.Options {
	return resolver.Options{
		Mode:           resolver.Mode(c.Mode),
		Strategies:     c.Strategies,
		LocalProtocols: c.LocalProtocols,
		Logger:         logger,
	}
}

// AutoIDConfig configures the auto id counters.
type AutoIDConfig struct {
	Format     string        `yaml:"format"`
	Width      int           `yaml:"width"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// StaleAfter is the age after which a leftover counter claim is
	// recovered. Zero disables recovery.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Validate validates the auto id configuration.
func (c *AutoIDConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(string(autoid.Decimal), string(autoid.Hex))),
		validation.Field(&c.Width, validation.Min(0), validation.Max(32)),
		validation.Field(&c.Retries, validation.Required, validation.Min(1)),
		validation.Field(&c.RetryDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StaleAfter, validation.Min(time.Millisecond)),
	)
}

// Allocator builds the allocator described by the configuration.
func (c *AutoIDConfig) Allocator(logger *slog.Logger) *autoid.Allocator {
	a := autoid.New(autoid.Format(c.Format), c.Width)
	a.Retries = c.Retries
	a.RetryDelay = c.RetryDelay
	a.StaleAfter = c.StaleAfter
	a.Logger = logger
	return a
}

// SQLiteConfig holds SQLite database configuration. An empty path
// disables the index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether an index database is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
		PKB: PKBConfig{
			Prefix: collection.DefaultPrefix,
		},
		Resolver: ResolverConfig{
			Mode:       string(resolver.ModeContext),
			Strategies: []string{string(resolver.ModeCollection)},
		},
		AutoID: AutoIDConfig{
			Format:     string(autoid.Decimal),
			Width:      autoid.DefaultWidth,
			Retries:    autoid.DefaultRetries,
			RetryDelay: autoid.DefaultRetryDelay,
			StaleAfter: autoid.DefaultStaleAfter,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

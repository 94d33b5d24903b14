// internal/config/model.go
//
// Typed configuration model for formd.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/formd.yaml`                       – primary static file,
//   • `FORMD_`-prefixed environment overrides – highest precedence.
//
// Any string value that begins with `vault:` is resolved through a
// SecretResolver *before* unmarshalling, so the model never stores Vault
// references, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`; Koanf ignores `yaml` tags.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Zero durations and counts are replaced by the defaults below.

package config

import "time"

// Defaults applied after unmarshal.
const (
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultMaxSessions    = 10000
	DefaultSubmitTimeout  = 30 * time.Second
	DefaultCacheSize      = 256
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`

	// TokenSecret signs per-session submit tokens.  When empty a random key
	// is generated at start-up, which invalidates tokens on restart.
	TokenSecret string `koanf:"token_secret" validate:"omitempty,min=32"`
}

//
// Forms section
//

// Forms configures the definition registry and live sessions.
type Forms struct {
	DefinitionsDir string `koanf:"definitions_dir" validate:"required"`
	CacheSize      int    `koanf:"cache_size"      validate:"gte=0"`

	// Process-wide validate-on-event defaults.  A definition may override
	// each one.
	ValidateOnChange bool `koanf:"validate_on_change"`
	ValidateOnInput  bool `koanf:"validate_on_input"`
	ValidateOnBlur   bool `koanf:"validate_on_blur"`

	SessionIdleTTL time.Duration `koanf:"session_idle_ttl" validate:"gte=0"`
	MaxSessions    int           `koanf:"max_sessions"     validate:"gte=0"`
	SubmitTimeout  time.Duration `koanf:"submit_timeout"   validate:"gte=0"`
}

//
// Database section
//

// Database is optional; without a DSN the store action is unavailable.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  The *secret* portion (`Password`) is
// usually a `vault:` reference injected at runtime.
type Database struct {
	DSN      string `koanf:"dsn"`
	Password string `koanf:"password" validate:"excluded_without=DSN"`
}

//
// Log section
//

// Log configures the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // FORMD_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Forms    Forms    `koanf:"forms"`
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

// applyDefaults fills zero values and makes relative paths absolute under
// root.
func (c *Config) applyDefaults() {
	if c.Forms.SessionIdleTTL == 0 {
		c.Forms.SessionIdleTTL = DefaultSessionIdleTTL
	}
	if c.Forms.MaxSessions == 0 {
		c.Forms.MaxSessions = DefaultMaxSessions
	}
	if c.Forms.SubmitTimeout == 0 {
		c.Forms.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.Forms.CacheSize == 0 {
		c.Forms.CacheSize = DefaultCacheSize
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	c.Forms.DefinitionsDir = underRoot(c.Paths.Root, c.Forms.DefinitionsDir)
	c.Log.Dir = underRoot(c.Paths.Root, c.Log.Dir)
}

// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env` file.
  2. `<root>/conf/formd.yaml`.
  3. Environment variables prefixed `FORMD_`, where `__` maps to “.”
     (e.g., `FORMD_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, `vault:` references are resolved, the tree is unmarshalled
into strongly-typed structs, defaults are applied, the result is validated,
and it is cached in an `atomic.Pointer` for lock-free reads.  `Reload()`
calls `Load()` again with the same resolver and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans : root discovery, YAML read, env overlay.
  • ERROR spans : YAML parse, env overlay, secret resolution, unmarshal,
    validation failures.
  • INFO  span  : final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix = "FORMD_"
	fileName  = "formd.yaml"
	secretTag = "vault:"
)

// SecretResolver turns a `vault:` reference into its value.  *vault.Client
// satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// ErrNoResolver is returned when the tree holds a `vault:` reference but no
// resolver was supplied.
var ErrNoResolver = errors.New("config: vault reference found but no resolver configured")

var (
	current atomic.Pointer[Config]

	lastMu       sync.Mutex
	lastResolver SecretResolver
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves FORMD_ROOT or climbs directories until conf/formd.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("FORMD_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root directory and loads from it.  sec may be nil when
// no value is a `vault:` reference.
func Load(ctx context.Context, sec SecretResolver) (*Config, error) {
	return LoadFrom(ctx, rootDir(), sec)
}

// LoadFrom reads .env, YAML, env overrides from root, resolves secrets,
// validates, and caches Config.
func LoadFrom(ctx context.Context, root string, sec SecretResolver) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("config: load %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: FORMD_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	if err := resolveSecrets(ctx, k, sec); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Paths.Root = root
	cfg.applyDefaults()
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	lastMu.Lock()
	lastResolver = sec
	lastMu.Unlock()

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"definitions_dir", cfg.Forms.DefinitionsDir,
		"database", cfg.Database.DSN != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps FORMD_FORMS__MAX_SESSIONS to forms.max_sessions.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
}

// resolveSecrets replaces every `vault:` string in k with its value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, sec SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !strings.HasPrefix(s, secretTag) {
			continue
		}
		if sec == nil {
			return fmt.Errorf("%w (%s)", ErrNoResolver, key)
		}
		plain, err := sec.Resolve(ctx, s)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", key, err)
		}
		if err := k.Set(key, plain); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}

func underRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last successfully loaded Config, or nil.
func Get() *Config { return current.Load() }

// Reload re-reads the configuration from the same root.
func Reload(ctx context.Context) error {
	lastMu.Lock()
	sec := lastResolver
	lastMu.Unlock()

	root := rootDir()
	if c := current.Load(); c != nil {
		root = c.Paths.Root
	}
	_, err := LoadFrom(ctx, root, sec)
	return err
}

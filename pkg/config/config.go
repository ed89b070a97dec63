// Package config loads the marketmap TOML configuration.
//
// A config file overrides any subset of the defaults:
//
//	[data]
//	dir = "data"
//	daily = "daily_stock_changes.xlsx"
//
//	[caps]
//	Energy = 4
//
//	[layout]
//	padding_inner = 2
//
//	[cache]
//	backend = "redis"
//	[cache.redis]
//	addr = "localhost:6379"
//
// Unknown keys are rejected so typos surface instead of being ignored.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/encode"
	"github.com/matzehuels/marketmap/pkg/errors"
	mmio "github.com/matzehuels/marketmap/pkg/io"
	"github.com/matzehuels/marketmap/pkg/pipeline"
	"github.com/matzehuels/marketmap/pkg/render"
	"github.com/matzehuels/marketmap/pkg/treemap"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Data   Data            `toml:"data"`
	Caps   map[string]int  `toml:"caps"`
	Canvas Canvas          `toml:"canvas"`
	Layout treemap.Options `toml:"layout"`
	Render Render          `toml:"render"`
	Cache  Cache           `toml:"cache"`
	Server Server          `toml:"server"`
}

// Data locates the input tables.
type Data struct {
	Dir string `toml:"dir"`
	mmio.Paths
}

// Canvas is the default canvas size in pixels.
type Canvas struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Render holds artifact settings.
type Render struct {
	Title   string   `toml:"title"`
	Formats []string `toml:"formats"`
	Margin  float64  `toml:"margin"`
	Scale   float64  `toml:"scale"`
}

// Cache selects and configures the cache backend.
type Cache struct {
	Backend string `toml:"backend"`
	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`
	// Scope namespaces every key, so several indices can share one backend.
	Scope string `toml:"scope"`
	Redis Redis  `toml:"redis"`
}

// Redis configures the redis backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Server configures `marketmap serve`.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Duration is a time.Duration written as a string ("15s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data:   Data{Dir: ".", Paths: mmio.DefaultPaths()},
		Caps:   aggregate.DefaultCaps(),
		Canvas: Canvas{Width: pipeline.DefaultWidth, Height: pipeline.DefaultHeight},
		Layout: treemap.DefaultOptions(),
		Render: Render{
			Title:   encode.DefaultTitle,
			Formats: []string{render.FormatSVG},
		},
		Cache: Cache{
			Backend: BackendFile,
			Redis:   Redis{Addr: "localhost:6379", Prefix: "marketmap:"},
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Config{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	// Caps from the file merge into the defaults rather than replacing them.
	defaults := cfg.Caps
	cfg.Caps = nil

	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.Caps = aggregate.Caps(defaults).Merge(cfg.Caps)
	cfg.Data.Paths = cfg.Data.Paths.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Canvas.Width < 0 || c.Canvas.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas size must be non-negative, got %gx%g", c.Canvas.Width, c.Canvas.Height)
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	for _, f := range c.Render.Formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	if c.Render.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render margin must be non-negative")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone, "":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (must be file, redis or none)", c.Cache.Backend)
	}
	return nil
}

// PipelineOptions returns run options seeded from c. The selection is left
// empty.
func (c Config) PipelineOptions() pipeline.Options {
	formats := make([]string, len(c.Render.Formats))
	copy(formats, c.Render.Formats)
	return pipeline.Options{
		Caps:    aggregate.Caps(c.Caps),
		Width:   c.Canvas.Width,
		Height:  c.Canvas.Height,
		Layout:  c.Layout,
		Formats: formats,
		Title:   c.Render.Title,
		Margin:  c.Render.Margin,
		Scale:   c.Render.Scale,
	}
}

// Source returns a file source over the configured tables.
func (c Config) Source(logger *log.Logger) *mmio.FileSource {
	return mmio.NewFileSource(c.Data.Dir, c.Data.Paths, logger)
}

// Keyer returns the cache keyer, scoped when Cache.Scope is set.
func (c Config) Keyer() cache.Keyer {
	if c.Cache.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Scope+":")
}

// OpenCache opens the configured cache backend. The file backend falls back
// to CacheDir when no directory is configured.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir := c.Cache.Dir
	if dir == "" {
		d, err := CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

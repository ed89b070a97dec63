package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/matzehuels/marketmap/pkg/aggregate"
	"github.com/matzehuels/marketmap/pkg/cache"
	"github.com/matzehuels/marketmap/pkg/errors"
	"github.com/matzehuels/marketmap/pkg/treemap"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Layout != treemap.DefaultOptions() {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if cfg.Data.Daily != "daily_stock_changes.csv" {
		t.Errorf("Daily = %q", cfg.Data.Daily)
	}
}

func TestDecode(t *testing.T) {
	input := `
[data]
dir = "/srv/market"
daily = "daily.xlsx"

[caps]
Energy = 4
"Information Technology" = 30

[canvas]
width = 1440

[layout]
padding_inner = 2
padding_top = 20
header_height = 40

[render]
formats = ["svg", "png"]

[server]
read_timeout = "5s"
`
	cfg, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Data.Dir != "/srv/market" || cfg.Data.Daily != "daily.xlsx" {
		t.Errorf("Data = %+v", cfg.Data)
	}
	if cfg.Data.Monthly != "monthly_stock_changes.csv" {
		t.Errorf("unset path lost its default: %q", cfg.Data.Monthly)
	}

	caps := aggregate.Caps(cfg.Caps)
	tests := []struct {
		sector string
		want   int
	}{
		{"Energy", 4},
		{"Information Technology", 30},
		{"Utilities", 5},
		{"Financials", aggregate.DefaultCap},
	}
	for _, tt := range tests {
		if got := caps.Cap(tt.sector); got != tt.want {
			t.Errorf("Cap(%s) = %d, want %d", tt.sector, got, tt.want)
		}
	}

	if cfg.Canvas.Width != 1440 || cfg.Canvas.Height != 800 {
		t.Errorf("Canvas = %+v", cfg.Canvas)
	}
	if cfg.Layout.PaddingInner != 2 {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if len(cfg.Render.Formats) != 2 {
		t.Errorf("Formats = %v", cfg.Render.Formats)
	}
	if cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout.Duration != 30*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.Server.WriteTimeout)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", "[data\n"},
		{"unknown key", "[render]\ncolour = \"red\"\n"},
		{"bad format", "[render]\nformats = [\"gif\"]\n"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n"},
		{"negative padding", "[layout]\npadding_inner = -1\n"},
		{"bad duration", "[server]\nread_timeout = \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cfg, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(Encode(Default())): %v\n%s", err, buf.String())
	}
	if cfg.Server.ReadTimeout != Default().Server.ReadTimeout {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Render.Title = "Custom"
	opts := cfg.PipelineOptions()

	if opts.Title != "Custom" || opts.Width != cfg.Canvas.Width {
		t.Errorf("opts = %+v", opts)
	}
	opts.Formats[0] = "png"
	if cfg.Render.Formats[0] != "svg" {
		t.Error("options share the formats slice with the config")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[canvas]\nheight = 600\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Canvas.Height != 600 {
		t.Errorf("Height = %v", cfg.Canvas.Height)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, path, err := LoadFile("")
	if err != nil || path != "" {
		t.Fatalf("LoadFile without file = %q, %v", path, err)
	}
	if cfg.Canvas.Width != Default().Canvas.Width {
		t.Error("defaults not returned")
	}

	dir := filepath.Join(xdg, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, FileName)
	if err := os.WriteFile(want, []byte("[render]\ntitle = \"XDG\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if path != want || cfg.Render.Title != "XDG" {
		t.Errorf("LoadFile = %q, title %q", path, cfg.Render.Title)
	}

	if _, _, err := LoadFile(filepath.Join(xdg, "nope.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("explicit missing file err = %v", err)
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := CacheDir()
	if err != nil || dir != filepath.Join("/tmp/xdg-cache", AppName) {
		t.Errorf("CacheDir = %q, %v", dir, err)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir, err = ConfigDir()
	if err != nil || dir != filepath.Join(home, ".config", AppName) {
		t.Errorf("ConfigDir = %q, %v", dir, err)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	cfg.Cache.Backend = BackendNone
	c, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T", c)
	}

	cfg.Cache.Backend = BackendFile
	cfg.Cache.Dir = t.TempDir()
	c, err = cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := c.(*cache.FileCache); !ok || fc.Dir() != cfg.Cache.Dir {
		t.Errorf("file backend = %T", c)
	}

	mr := miniredis.RunT(t)
	cfg.Cache.Backend = BackendRedis
	cfg.Cache.Redis.Addr = mr.Addr()
	c, err = cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("marketmap:k") {
		t.Errorf("keys = %v, want prefixed key", mr.Keys())
	}
}

func TestKeyer(t *testing.T) {
	opts := cache.LayoutKeyOpts{Width: 100, Height: 50}
	plain := Default().Keyer().LayoutKey("h", opts)

	cfg := Default()
	cfg.Cache.Scope = "spx"
	if got := cfg.Keyer().LayoutKey("h", opts); got != "spx:"+plain {
		t.Errorf("scoped key = %q, want %q", got, "spx:"+plain)
	}
}

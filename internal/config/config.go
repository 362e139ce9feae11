package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"github.com/go-scripts/chatextract/internal/browser"
)

const (
	EnvOutputDir  = "CHATEXTRACT_OUTPUT_DIR"
	EnvUserAgent  = "CHATEXTRACT_USER_AGENT"
	EnvChromePath = "CHATEXTRACT_CHROME_PATH"
)

// DefaultURLs are extracted when no URL is given on the command line.
var DefaultURLs = []string{
	"https://claude.ai/share/62bc6fc6-d53a-4f65-8ad3-f42bb8941952",
	"https://claude.ai/share/0cc98a15-99f4-4d9a-c7f9-ad8090575d67",
	"https://g.co/gemini/share/c9cba1e9858a",
	"https://g.co/gemini/share/4079b2f26c6f",
}

// Config is the file configuration. Zero values are filled from Default, so
// booleans are phrased so that false is the default and max_scrolls is a
// pointer to let 0 disable scrolling.
type Config struct {
	OutputDir         string   `json:"output_dir"`
	URLs              []string `json:"urls"`
	UserAgent         string   `json:"user_agent"`
	ChromePath        string   `json:"chrome_path"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Headful           bool     `json:"headful"`
	NoStealth         bool     `json:"no_stealth"`
	NoScreenshot      bool     `json:"no_screenshot"`
	NavigationTimeout string   `json:"navigation_timeout"`
	SettleDelay       string   `json:"settle_delay"`
	ScrollPause       string   `json:"scroll_pause"`
	MaxScrolls        *int     `json:"max_scrolls"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := browser.DefaultOptions()
	return Config{
		OutputDir:         "output",
		URLs:              append([]string(nil), DefaultURLs...),
		UserAgent:         opts.UserAgent,
		Width:             opts.Width,
		Height:            opts.Height,
		NavigationTimeout: opts.NavigationTimeout.String(),
		SettleDelay:       opts.SettleDelay.String(),
		ScrollPause:       opts.ScrollPause.String(),
		MaxScrolls:        &opts.MaxScrolls,
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadConfig reads name and merges <name>.local.<ext> over it, the local file
// taking priority. It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", localFilepath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return out, err
		}
		log.Debug("Merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Load reads the config file at path (a missing file is fine), fills unset
// fields with defaults, then applies .env and environment overrides.
func Load(path string) (Config, error) {
	cfg, err := ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if err := mergo.Merge(&cfg, Default(), mergo.WithoutDereference); err != nil {
		return Config{}, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := loadDotenv(".env"); err != nil {
		log.Warn("Ignoring .env", "err", err)
	}
	cfg.applyEnv()

	if _, err := cfg.BrowserOptions(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotenv loads path into the environment. A missing file is not an error.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv(EnvChromePath); v != "" {
		c.ChromePath = v
	}
}

// BrowserOptions converts the config into browser options.
func (c Config) BrowserOptions() (browser.Options, error) {
	opts := browser.DefaultOptions()
	opts.UserAgent = c.UserAgent
	opts.ExecPath = c.ChromePath
	opts.Width = c.Width
	opts.Height = c.Height
	opts.Headless = !c.Headful
	opts.Stealth = !c.NoStealth
	opts.Screenshot = !c.NoScreenshot
	if c.MaxScrolls != nil {
		opts.MaxScrolls = *c.MaxScrolls
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"navigation_timeout", c.NavigationTimeout, &opts.NavigationTimeout},
		{"settle_delay", c.SettleDelay, &opts.SettleDelay},
		{"scroll_pause", c.ScrollPause, &opts.ScrollPause},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return opts, fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dst = v
	}
	return opts, nil
}

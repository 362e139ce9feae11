package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[Config](filepath.Join(t.TempDir(), "chatextract.json5"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chatextract.json5"), `{
		// shared settings
		output_dir: "shared",
		max_scrolls: 3,
		urls: ["https://claude.ai/share/a"],
	}`)
	writeFile(t, filepath.Join(dir, "chatextract.local.json5"), `{output_dir: "mine"}`)

	cfg, err := ReadConfig[Config](filepath.Join(dir, "chatextract.json5"))
	require.NoError(t, err)
	assert.Equal(t, "mine", cfg.OutputDir)
	require.NotNil(t, cfg.MaxScrolls)
	assert.Equal(t, 3, *cfg.MaxScrolls)
	assert.Equal(t, []string{"https://claude.ai/share/a"}, cfg.URLs)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvOutputDir, "")
	t.Setenv(EnvUserAgent, "")
	t.Setenv(EnvChromePath, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "chatextract.json5"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Len(t, cfg.URLs, 4)

	opts, err := cfg.BrowserOptions()
	require.NoError(t, err)
	assert.True(t, opts.Headless)
	assert.True(t, opts.Stealth)
	assert.True(t, opts.Screenshot)
	assert.Equal(t, 30*time.Second, opts.NavigationTimeout)
	assert.Equal(t, 5*time.Second, opts.SettleDelay)
	assert.Equal(t, 1500*time.Millisecond, opts.ScrollPause)
	assert.Equal(t, 15, opts.MaxScrolls)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatextract.json5")
	writeFile(t, path, `{
		output_dir: "from-file",
		user_agent: "file-agent",
		settle_delay: "250ms",
		headful: true,
		no_screenshot: true,
	}`)
	t.Setenv(EnvOutputDir, "from-env")
	t.Setenv(EnvUserAgent, "")
	t.Setenv(EnvChromePath, "/opt/chrome")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.Equal(t, "file-agent", cfg.UserAgent)
	assert.Equal(t, "/opt/chrome", cfg.ChromePath)
	assert.Equal(t, DefaultURLs, cfg.URLs)

	opts, err := cfg.BrowserOptions()
	require.NoError(t, err)
	assert.False(t, opts.Headless)
	assert.False(t, opts.Screenshot)
	assert.Equal(t, 250*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, "/opt/chrome", opts.ExecPath)
	assert.Equal(t, 1920, opts.Width)
}

func TestLoadZeroMaxScrolls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatextract.json5")
	writeFile(t, path, `{max_scrolls: 0}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	opts, err := cfg.BrowserOptions()
	require.NoError(t, err)
	assert.Zero(t, opts.MaxScrolls)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chatextract.json5"), `{max_scrolls: 3}`)
	writeFile(t, filepath.Join(dir, "chatextract.local.json5"), `{max_scrolls: 0}`)
	cfg, err = Load(filepath.Join(dir, "chatextract.json5"))
	require.NoError(t, err)
	opts, err = cfg.BrowserOptions()
	require.NoError(t, err)
	assert.Zero(t, opts.MaxScrolls)

	cfg, err = Load(filepath.Join(t.TempDir(), "chatextract.json5"))
	require.NoError(t, err)
	opts, err = cfg.BrowserOptions()
	require.NoError(t, err)
	assert.Equal(t, 15, opts.MaxScrolls)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "bad json5", content: `{output_dir: }`},
		{name: "bad duration", content: `{navigation_timeout: "soon"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chatextract.json5")
			writeFile(t, path, tc.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadDotenv(filepath.Join(dir, ".env")))

	bad := filepath.Join(dir, "bad.env")
	writeFile(t, bad, "CHATEXTRACT_OUTPUT_DIR=\"unterminated\n")
	err := loadDotenv(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.env")
}

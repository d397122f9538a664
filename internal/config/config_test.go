package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithPort(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{"PORT": "3000"})})
	require.NoError(t, err)

	want := Default()
	want.Port = 3000
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoadFailsFastOnPort(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing", map[string]string{}, ErrPortMissing},
		{"empty", map[string]string{"PORT": " "}, ErrPortMissing},
		{"non-numeric", map[string]string{"PORT": "http"}, ErrPortInvalid},
		{"zero", map[string]string{"PORT": "0"}, ErrPortInvalid},
		{"negative", map[string]string{"PORT": "-1"}, ErrPortInvalid},
		{"too large", map[string]string{"PORT": "65536"}, ErrPortInvalid},
		{"signed", map[string]string{"PORT": "+8080"}, ErrPortInvalid},
		{"leading zero", map[string]string{"PORT": "08080"}, ErrPortInvalid},
		{"padded", map[string]string{"PORT": " 8080"}, ErrPortInvalid},
		{"bad admin", map[string]string{"PORT": "3000", "ADMIN_PORT": "x"}, ErrPortInvalid},
		{"admin clash", map[string]string{"PORT": "3000", "ADMIN_PORT": "3000"}, ErrPortInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(Options{WorkDir: t.TempDir(), LookupEnv: mapEnv(tc.env)})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fixture.yml", `
host: 127.0.0.1
admin_port: 9090
log_level: debug
read_timeout: 3s
shutdown_timeout: 1500ms
max_header_bytes: 4096
`)

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{"PORT": "3000"})})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.AdminPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ShutdownTimeout)
	assert.Equal(t, 4096, cfg.MaxHeaderBytes)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "fixture.yml"), cfg.ConfigFile)
	assert.True(t, cfg.AdminEnabled())
}

func TestLoadTOMLFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf"), 0o700))
	writeFile(t, filepath.Join(dir, "conf"), "server.toml", `
host = "127.0.0.1"
write_timeout = "20s"
`)

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{
		"PORT":           "3000",
		"FIXTURE_CONFIG": "conf/server.toml",
	})})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 20*time.Second, cfg.WriteTimeout)
	assert.Equal(t, filepath.Join(dir, "conf", "server.toml"), cfg.ConfigFile)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fixture.yaml", "admin_port: 9090\nlog_level: debug\n")

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{
		"PORT":       "3000",
		"ADMIN_PORT": "9191",
		"LOG_LEVEL":  "warn",
	})})
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.AdminPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(Options{
		WorkDir:    dir,
		ConfigFile: "missing.yml",
		LookupEnv:  mapEnv(map[string]string{"PORT": "3000"}),
	})
	require.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "config file does not exist at: "+filepath.Join(dir, "missing.yml"))
}

func TestLoadOptionOverridesEnvConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "log_level: error\n")
	writeFile(t, dir, "b.yml", "log_level: debug\n")

	cfg, err := Load(Options{
		WorkDir:    dir,
		ConfigFile: "b.yml",
		LookupEnv:  mapEnv(map[string]string{"PORT": "3000", "FIXTURE_CONFIG": "a.yml"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name, file, content string
		want                error
	}{
		{name: "unknown extension", file: "fixture.json", content: "{}", want: ErrConfigFormat},
		{name: "yaml port key", file: "fixture.yml", content: "port: 3000\n"},
		{name: "yaml bad duration", file: "fixture.yml", content: "read_timeout: soon\n"},
		{name: "toml unknown key", file: "fixture.toml", content: "colour = \"red\"\n"},
		{name: "negative timeout", file: "fixture.yml", content: "idle_timeout: -1s\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tc.file, tc.content)

			_, err := Load(Options{
				WorkDir:    dir,
				ConfigFile: tc.file,
				LookupEnv:  mapEnv(map[string]string{"PORT": "3000"}),
			})
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fixture.yml", "")

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{"PORT": "3000"})})
	require.NoError(t, err)
	assert.Equal(t, Default().ReadTimeout, cfg.ReadTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PORT=4000\nLOG_LEVEL=debug\n")

	cfg, err := Load(Options{WorkDir: dir, LookupEnv: mapEnv(map[string]string{"LOG_LEVEL": "error"})})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "error", cfg.LogLevel, "process environment wins over .env")
}

func TestParsePort(t *testing.T) {
	p, err := ParsePort("PORT", "8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, p)

	for _, v := range []string{"", "eighty", "8080x", "70000", "+8080", "-80", "08080", " 8080 ", "8080\n", "0x1F90", "80_80"} {
		_, err := ParsePort("PORT", v)
		assert.ErrorIs(t, err, ErrPortInvalid, v)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RowanDark/veil/internal/cipher"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
}

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	homeDir := filepath.Join(tempDir, "home")
	workDir := filepath.Join(tempDir, "work")
	require.NoError(t, os.MkdirAll(homeDir, 0o755))
	require.NoError(t, os.MkdirAll(workDir, 0o755))
	t.Setenv("HOME", homeDir)
	chdir(t, workDir)
	return tempDir
}

func TestLoadDefaults(t *testing.T) {
	tempDir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50061", cfg.ServerAddr)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(tempDir, "home", ".veil", "protocols"), cfg.Store.Path)
	assert.Equal(t, cipher.LegacyID, cfg.Defaults.ProtocolID)
	assert.Equal(t, 0, cfg.Defaults.NoiseLevel)
	assert.False(t, cfg.Defaults.StripWhitespace)
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := isolate(t)

	veilDir := filepath.Join(tempDir, "home", ".veil")
	require.NoError(t, os.MkdirAll(veilDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(veilDir, "config.yaml"), []byte(`server_addr: 0.0.0.0:1111
store:
  backend: memory
defaults:
  protocol_id: home-protocol
  noise_level: 1
`), 0o644))

	// The local file overrides the home file key by key.
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "work", "veil.yml"), []byte(`server_addr: 127.0.0.1:6500
defaults:
  strip_whitespace: true
`), 0o644))

	// Env overrides beat file configuration.
	t.Setenv("VEIL_AUTH_TOKEN", "env-token")
	t.Setenv("VEIL_NOISE_LEVEL", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6500", cfg.ServerAddr)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "home-protocol", cfg.Defaults.ProtocolID)
	assert.Equal(t, 2, cfg.Defaults.NoiseLevel)
	assert.True(t, cfg.Defaults.StripWhitespace)
	assert.Equal(t, "env-token", cfg.AuthToken)
}

func TestLoadLegacyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("NCRYPTOR_STORE_BACKEND", "REDIS")
	t.Setenv("NCRYPTOR_REDIS_URL", "redis://cache:6379/2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.Store.RedisURL)
}

func TestLoadEtcdEndpoints(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "etcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`store:
  backend: etcd
  etcd_endpoints: [" etcd-0:2379 ", ""]
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"etcd-0:2379"}, cfg.Store.EtcdEndpoints)
	assert.Equal(t, "/veil", cfg.Store.EtcdPrefix)

	t.Setenv("VEIL_ETCD_ENDPOINTS", "etcd-1:2379, etcd-2:2379,")
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"etcd-1:2379", "etcd-2:2379"}, cfg.Store.EtcdEndpoints)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`audit_log: /var/log/veil/audit.jsonl
store:
  backend: file
  path: /srv/veil
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/log/veil/audit.jsonl", cfg.AuditLog)
	assert.Equal(t, "/srv/veil", cfg.Store.Path)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		tempDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "work", "veil.yml"), []byte("store: [oops"), 0o644))
		_, err := Load()
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("bad env noise level", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEIL_NOISE_LEVEL", "loud")
		_, err := Load()
		assert.ErrorContains(t, err, "VEIL_NOISE_LEVEL")
	})

	t.Run("bad env strip flag", func(t *testing.T) {
		isolate(t)
		t.Setenv("VEIL_STRIP_WHITESPACE", "sometimes")
		_, err := Load()
		assert.ErrorContains(t, err, "VEIL_STRIP_WHITESPACE")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "consul" }, "unsupported store backend"},
		{"file without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.RedisURL = "" }, "store.redis_url"},
		{"etcd without endpoints", func(c *Config) { c.Store.Backend = BackendEtcd }, "store.etcd_endpoints"},
		{"noise too high", func(c *Config) { c.Defaults.NoiseLevel = 3 }, "noise_level"},
		{"noise negative", func(c *Config) { c.Defaults.NoiseLevel = -1 }, "noise_level"},
		{"no protocol", func(c *Config) { c.Defaults.ProtocolID = " " }, "protocol_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

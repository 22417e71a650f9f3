package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/repositories"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.DBDSN = "postgres://localhost/messaging"
	cfg.SecretKey = "s3cret"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "9083", cfg.GRPCPort)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 7, cfg.AccessTokenExpireDays)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, repositories.ListEmpty, cfg.ListPolicy())
	assert.False(t, cfg.ProtectUserScopedViews)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                      "9000",
		"DB_DRIVER":                 "sqlite3",
		"DB_DSN":                    "/tmp/m.db",
		"SECRET_KEY":                "abc",
		"ALGORITHM":                 "HS512",
		"ACCESS_TOKEN_EXPIRE_DAYS":  "2",
		"DB_MAX_OPEN_CONNS":         "4",
		"CORS_ALLOWED_ORIGINS":      "http://a.test, http://b.test,,",
		"EMPTY_LIST_POLICY":         "not_found",
		"PROTECT_USER_SCOPED_VIEWS": "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, applyEnv(&cfg, lookup))
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "HS512", cfg.Algorithm)
	assert.Equal(t, 2, cfg.AccessTokenExpireDays)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, repositories.ListNotFound, cfg.ListPolicy())
	assert.True(t, cfg.ProtectUserScopedViews)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, func(k string) (string, bool) {
		if k == "ACCESS_TOKEN_EXPIRE_DAYS" {
			return "seven", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "ACCESS_TOKEN_EXPIRE_DAYS")
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("port: \"7000\"\nsecret_key: from-yaml\ndb_dsn: from-yaml\nempty_list_policy: not_found\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SECRET_KEY=from-dotenv\n"), 0o600))

	// the process environment wins over both files
	t.Setenv("PORT", "7100")
	t.Setenv("SECRET_KEY", "")
	require.NoError(t, os.Unsetenv("SECRET_KEY"))

	cfg, err := Load(yamlPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "from-dotenv", cfg.SecretKey)
	assert.Equal(t, "from-yaml", cfg.DBDSN)
	assert.Equal(t, repositories.ListNotFound, cfg.ListPolicy())
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"dsn", func(c *Config) { c.DBDSN = "" }, "DB_DSN"},
		{"secret", func(c *Config) { c.SecretKey = "" }, "SECRET_KEY"},
		{"algorithm", func(c *Config) { c.Algorithm = "RS256" }, "ALGORITHM"},
		{"ttl", func(c *Config) { c.AccessTokenExpireDays = 0 }, "ACCESS_TOKEN_EXPIRE_DAYS"},
		{"policy", func(c *Config) { c.EmptyListPolicy = "sometimes" }, "list policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.IsProduction())
	cfg.AppEnv = "Production"
	assert.True(t, cfg.IsProduction())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	path := writeEnv(t, "APP_NAME=hr-identity-test\n")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "hr-identity-test", cfg.App.Name)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, "auth.security-events", cfg.Kafka.SecurityTopic)
	assert.Equal(t, "(sAMAccountName=%s)", cfg.Directory.UserFilter)
	assert.False(t, cfg.Auth.RevokeRefreshOnLogout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadWithPath_Overrides(t *testing.T) {
	path := writeEnv(t, `APP_NAME=gw
KAFKA_BROKERS=k1:9092, k2:9092 ,
AUTH_REVOKE_REFRESH_ON_LOGOUT=true
LDAP_ENABLED=true
LDAP_URL=ldap://dc.example.local:389
LDAP_BASE_DN=dc=example,dc=local
`)

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Auth.RevokeRefreshOnLogout)
	assert.NoError(t, cfg.ValidateDirectory())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Name: "hr-identity", Environment: "development"},
			Server: ServerConfig{Port: 8080},
			GRPC:   GRPCConfig{Port: 50051},
			JWT: JWTConfig{
				Secret:          "secret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 7 * 24 * time.Hour,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad grpc port", func(c *Config) { c.GRPC.Port = 0 }, true},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, true},
		{"refresh not longer than access", func(c *Config) { c.JWT.RefreshTokenTTL = c.JWT.AccessTokenTTL }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDirectory(t *testing.T) {
	c := &Config{}
	assert.NoError(t, c.ValidateDirectory(), "disabled directory needs no settings")

	c.Directory = DirectoryConfig{Enabled: true, URL: "ldap://dc", UserFilter: "(sAMAccountName=%s)"}
	assert.Error(t, c.ValidateDirectory(), "base DN is required")

	c.Directory.BaseDN = "dc=corp"
	c.Directory.UserFilter = "(uid=admin)"
	assert.Error(t, c.ValidateDirectory(), "filter needs a placeholder")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "auth_db", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=auth_db sslmode=disable", d.DSN())
}

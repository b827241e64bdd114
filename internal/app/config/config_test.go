package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, toml string) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(toml)))
	cfg, err := decode(v)
	require.NoError(t, err)
	return cfg
}

func TestDecode_Defaults(t *testing.T) {
	cfg := load(t, "")

	require.Equal(t, 8080, cfg.ServicePort)
	require.Equal(t, "jwt", cfg.Auth.Mode)
	require.Equal(t, "memory", cfg.Table.Driver)
	require.True(t, cfg.Table.HeaderRow)
	require.Equal(t, 10*time.Millisecond, cfg.Lock.PollInterval)
	require.Equal(t, 10*time.Second, cfg.Lock.Timeout)
	require.Equal(t, "[Ringi]", cfg.Mail.SubjectPrefix)
	require.NotNil(t, cfg.JWT.SigningMethod)
}

func TestDecode_FileValues(t *testing.T) {
	cfg := load(t, `
ServicePort = 9090

[Auth]
Mode = "header"

[Table]
Driver = "sqlite"
DSN = "file::memory:"
Timezone = "UTC"

[Table.Columns]
id = 2
avoidableRisks = 9

[Lock]
Timeout = "2s"

[Workflow]
AllowSelfApproval = true
`)

	require.Equal(t, 9090, cfg.ServicePort)
	require.Equal(t, "header", cfg.Auth.Mode)
	require.Equal(t, "X-Forwarded-Email", cfg.Auth.Header)
	require.Equal(t, 2*time.Second, cfg.Lock.Timeout)
	require.True(t, cfg.Workflow.AllowSelfApproval)
	require.Equal(t, 2, cfg.Table.Columns["id"])
	// viper приводит ключи к нижнему регистру
	require.Equal(t, 9, cfg.Table.Columns["avoidablerisks"])
	require.NoError(t, cfg.Validate())
	require.Equal(t, time.UTC, cfg.Location())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return load(t, `
[Auth]
Mode = "dev"
DevUser = "dev@example.com"
`)
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Auth.Mode = "jwt"
	require.ErrorContains(t, cfg.Validate(), "jwt.token")

	cfg = base()
	cfg.Table.Driver = "postgres"
	require.ErrorContains(t, cfg.Validate(), "DB_DSN")

	cfg = base()
	cfg.Lock.Driver = "redis"
	require.ErrorContains(t, cfg.Validate(), "redis.enabled")

	cfg = base()
	cfg.Mail.Driver = "smtp"
	require.ErrorContains(t, cfg.Validate(), "mail.host")

	cfg = base()
	cfg.Table.Driver = "excel"
	require.ErrorContains(t, cfg.Validate(), "unknown table.driver")

	cfg = base()
	cfg.Table.HeaderRow = false
	cfg.Table.HeaderLayout = true
	require.ErrorContains(t, cfg.Validate(), "table.headerrow")

	cfg = base()
	cfg.Table.Timezone = "Mars/Olympus"
	require.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(envJWTSecret, "s3cret")
	t.Setenv(envRedisHost, "redis.internal")
	t.Setenv(envRedisPort, "6380")

	cfg := load(t, "")
	require.NoError(t, applyEnv(cfg))
	require.Equal(t, "s3cret", cfg.JWT.Token)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis.internal", cfg.Redis.Host)
	require.Equal(t, 6380, cfg.Redis.Port)

	t.Setenv(envRedisPort, "not-a-port")
	require.ErrorContains(t, applyEnv(cfg), "redis port must be int value")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_NAME", "housecup")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "s3cret", cfg.QRSecret, "QR secret falls back to the JWT secret")
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Relay.Enabled)
	assert.False(t, cfg.Twilio.Enabled())
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	env := "JWT_SECRET=from-file\nDB_DRIVER=sqlite\nDB_SQLITE_PATH=/tmp/x.db\nTWILIO_NOTIFY=+100,+200\n"
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte(env), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"JWT_SECRET", "DB_DRIVER", "DB_SQLITE_PATH", "TWILIO_NOTIFY"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.Equal(t, []string{"+100", "+200"}, cfg.Twilio.Notify)
}

func TestLoadRequiresSecret(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_NAME", "housecup")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres without name", Config{JWTSecret: "x", Database: DatabaseConfig{Driver: DriverPostgres}}, true},
		{"sqlite", Config{JWTSecret: "x", Database: DatabaseConfig{Driver: DriverSQLite}}, false},
		{"sqlite with relay", Config{JWTSecret: "x", Database: DatabaseConfig{Driver: DriverSQLite}, Relay: RelayConfig{Enabled: true}}, true},
		{"unknown driver", Config{JWTSecret: "x", Database: DatabaseConfig{Driver: "mysql"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := DatabaseConfig{SQLitePath: "/data/house.db"}.SQLiteDSN()
	assert.Contains(t, dsn, "/data/house.db?")
	assert.Contains(t, dsn, "busy_timeout")
}

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"dompet/internal/config"
	"dompet/internal/core"
	"dompet/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "q", cfg.AMQPQueue)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{Type: "postgres"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateBackend(t *testing.T) {
	factory := NewFactory(log.Discard())
	ctx := context.Background()

	tests := []struct {
		name   string
		config Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "dompet.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, tt.config)
			require.NoError(t, err)
			t.Cleanup(func() { _ = res.Cleanup() })

			assert.Nil(t, res.Publisher)
			require.NoError(t, res.Ready(ctx))

			u, err := res.Store.CreateUser(ctx, core.User{Email: "a@example.com", Username: "a"})
			require.NoError(t, err)
			_, err = res.Store.GetUser(ctx, u.ID)
			require.NoError(t, err)
		})
	}
}

func TestBuildMirrors_NoneConfigured(t *testing.T) {
	mirrors, err := BuildMirrors(context.Background(), &config.Config{}, log.Discard())
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

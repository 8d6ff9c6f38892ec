package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.ServerAddr())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ModelName())
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Mongo.Enabled())
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins())
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without uri",
			env:     map[string]string{"DB_DRIVER": "postgres"},
			wantErr: "POSTGRES_URI is required",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"DB_DRIVER": "mysql"},
			wantErr: "invalid DB_DRIVER",
		},
		{
			name:    "vertex without project",
			env:     map[string]string{"DB_DRIVER": "sqlite", "LLM_PROVIDER": "vertex"},
			wantErr: "VERTEX_PROJECT_ID is required",
		},
		{
			name:    "short jwt secret",
			env:     map[string]string{"DB_DRIVER": "sqlite", "AUTH_JWT_SECRET": "short"},
			wantErr: "AUTH_JWT_SECRET must be at least 32 characters",
		},
		{
			name:    "transcripts without redis",
			env:     map[string]string{"DB_DRIVER": "sqlite", "TRANSCRIPT_BUCKET": "bucket"},
			wantErr: "TRANSCRIPT_BUCKET requires REDIS_ADDR",
		},
		{
			name:    "bad env",
			env:     map[string]string{"DB_DRIVER": "sqlite", "APP_ENV": "qa"},
			wantErr: "invalid environment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenDatabaseSQLiteMemory(t *testing.T) {
	db, err := OpenDatabase(DBConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	_, err = OpenDatabase(DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=1", sqliteDSN(":memory:"))
	assert.Equal(t, "file:chat.db?cache=shared&_foreign_keys=1", sqliteDSN("file:chat.db?cache=shared"))
	assert.Equal(t, "chat.db?_fk=0", sqliteDSN("chat.db?_fk=0"))
}

func TestOpenDatabaseSQLiteEnforcesForeignKeys(t *testing.T) {
	db, err := OpenDatabase(DBConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)

	var on int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&on).Error)
	assert.Equal(t, 1, on)
}

func TestMongoClientOptions(t *testing.T) {
	opts := mongoClientOptions(MongoConfig{URI: "mongodb://localhost:27017", MaxPoolSize: 4, ConnectTimeout: 2 * time.Second})
	require.NotNil(t, opts.MaxPoolSize)
	assert.EqualValues(t, 4, *opts.MaxPoolSize)
	assert.Equal(t, 2*time.Second, *opts.ConnectTimeout)
	assert.Equal(t, 20*time.Second, *opts.ServerSelectionTimeout)
	assert.Equal(t, "interviewchat", *opts.AppName)

	opts = mongoClientOptions(MongoConfig{URI: "mongodb://localhost:27017"})
	assert.EqualValues(t, 10, *opts.MaxPoolSize)
	assert.Equal(t, 15*time.Second, *opts.ConnectTimeout)
}
